package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripInvalidMermaidDiagramsKeepsValidOnes(t *testing.T) {
	text := "Here is a diagram:\n```mermaid\ngraph TD\n  A --> B\n```\nDone."
	out := stripInvalidMermaidDiagrams(text)
	assert.Equal(t, text, out)
}

func TestStripInvalidMermaidDiagramsRemovesUnknownType(t *testing.T) {
	text := "```mermaid\nnotADiagramType foo bar\n```"
	out := stripInvalidMermaidDiagrams(text)
	assert.NotContains(t, out, "notADiagramType")
}

func TestStripInvalidMermaidDiagramsRemovesUnbalancedBrackets(t *testing.T) {
	text := "```mermaid\ngraph TD\n  A[Start --> B\n```"
	out := stripInvalidMermaidDiagrams(text)
	assert.NotContains(t, out, "A[Start")
}

func TestIsValidMermaidDiagramAcceptsKnownTypes(t *testing.T) {
	assert.True(t, isValidMermaidDiagram("sequenceDiagram\n  Alice->>Bob: Hello"))
	assert.True(t, isValidMermaidDiagram("classDiagram\n  Animal <|-- Duck"))
	assert.False(t, isValidMermaidDiagram(""))
	assert.False(t, isValidMermaidDiagram("banana TD"))
}

func TestBracketsBalanced(t *testing.T) {
	assert.True(t, bracketsBalanced("A[x(y){z}]"))
	assert.False(t, bracketsBalanced("A[x(y){z]"))
	assert.False(t, bracketsBalanced("A}"))
}
