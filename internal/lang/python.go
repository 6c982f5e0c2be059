package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:          "python",
		Extensions:    []string{".py"},
		Keyword:       "def",
		lang:          python.GetLanguage(),
		FunctionTypes: []string{"function_definition"},
		CallTypes:     []string{"call"},
		FunctionName:  pythonFunctionName,
		CalleeName:    pythonCalleeName,
		IsDecision:    pythonIsDecision,
	}
}

func pythonFunctionName(node *sitter.Node, source []byte) string {
	return fieldText(node, "name", source)
}

// pythonCalleeName handles foo() and obj.foo(); anything else (subscripts,
// calls on call results) has no stable name.
func pythonCalleeName(node *sitter.Node, source []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return NodeText(fn, source)
	case "attribute":
		return fieldText(fn, "attribute", source)
	}
	return ""
}

var pythonDecisionTypes = []string{
	"if_statement",
	"elif_clause",
	"for_statement",
	"while_statement",
	"except_clause",
	"conditional_expression",
	"boolean_operator",
	"for_in_clause",
	"if_clause",
	"assert_statement",
	"case_clause",
}

func pythonIsDecision(node *sitter.Node) bool {
	return containsType(pythonDecisionTypes, node.Type())
}
