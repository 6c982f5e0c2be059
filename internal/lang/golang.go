package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

func init() {
	Languages["go"] = &Language{
		Name:          "go",
		Extensions:    []string{".go"},
		Keyword:       "func",
		lang:          golang.GetLanguage(),
		FunctionTypes: []string{"function_declaration", "method_declaration"},
		CallTypes:     []string{"call_expression"},
		FunctionName:  goFunctionName,
		CalleeName:    goCalleeName,
		IsDecision:    goIsDecision,
	}
}

// goFunctionName returns the bare name for both functions and methods; the
// receiver type is dropped so methods share the flat function namespace.
func goFunctionName(node *sitter.Node, source []byte) string {
	return fieldText(node, "name", source)
}

func goCalleeName(node *sitter.Node, source []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return NodeText(fn, source)
	case "selector_expression":
		return fieldText(fn, "field", source)
	}
	return ""
}

func goIsDecision(node *sitter.Node) bool {
	switch node.Type() {
	case "if_statement", "for_statement", "expression_case", "type_case", "communication_case":
		return true
	case "binary_expression":
		return operatorIs(node, "&&", "||")
	}
	return false
}
