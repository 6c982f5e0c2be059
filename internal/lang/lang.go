// Package lang provides a language registry mapping file extensions to the
// definition keyword used by textual extraction and the tree-sitter grammar
// used by structural extraction and complexity scoring.
package lang

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language holds extraction configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string

	// Keyword introduces a function definition, e.g. "def" or "func".
	Keyword string

	lang *sitter.Language

	// FunctionTypes lists node types that define a function or method.
	FunctionTypes []string

	// CallTypes lists node types that represent a call expression.
	CallTypes []string

	// FunctionName returns the bare name of a function definition node.
	FunctionName func(node *sitter.Node, source []byte) string

	// CalleeName returns the called identifier of a call node, or "" if the
	// callee is not a plain or attribute identifier.
	CalleeName func(node *sitter.Node, source []byte) string

	// IsDecision reports whether node adds an independent path for
	// cyclomatic complexity.
	IsDecision func(node *sitter.Node) bool
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// IsFunction reports whether node is a function definition in this language.
func (l *Language) IsFunction(node *sitter.Node) bool {
	return containsType(l.FunctionTypes, node.Type())
}

// IsCall reports whether node is a call expression in this language.
func (l *Language) IsCall(node *sitter.Node) bool {
	return containsType(l.CallTypes, node.Type())
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
// Matching is case-insensitive.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// fieldText returns the text of the named field child, or "".
func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}

// operatorIs reports whether any anonymous child of node has one of the given types.
func operatorIs(node *sitter.Node, ops ...string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		if containsType(ops, child.Type()) {
			return true
		}
	}
	return false
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
