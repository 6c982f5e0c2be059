package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

func init() {
	Languages["ruby"] = &Language{
		Name:          "ruby",
		Extensions:    []string{".rb"},
		Keyword:       "def",
		lang:          ruby.GetLanguage(),
		FunctionTypes: []string{"method", "singleton_method"},
		CallTypes:     []string{"call"},
		FunctionName:  rubyFunctionName,
		CalleeName:    rubyCalleeName,
		IsDecision:    rubyIsDecision,
	}
}

func rubyFunctionName(node *sitter.Node, source []byte) string {
	return fieldText(node, "name", source)
}

func rubyCalleeName(node *sitter.Node, source []byte) string {
	return fieldText(node, "method", source)
}

func rubyIsDecision(node *sitter.Node) bool {
	switch node.Type() {
	case "if", "elsif", "unless", "while", "until", "for", "when", "rescue",
		"conditional", "if_modifier", "unless_modifier", "while_modifier",
		"until_modifier", "rescue_modifier":
		return true
	case "binary":
		return operatorIs(node, "and", "or", "&&", "||")
	}
	return false
}
