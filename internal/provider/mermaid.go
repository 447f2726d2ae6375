package provider

import (
	"regexp"
	"strings"
)

// mermaidDiagramTypes are the keywords a mermaid diagram must open with to
// be syntactically plausible. This is intentionally shallow: the gateway's
// job is to strip garbage, not to fully parse mermaid grammar.
var mermaidDiagramTypes = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram",
	"stateDiagram", "stateDiagram-v2", "erDiagram", "gantt",
	"pie", "journey", "mindmap", "gitGraph",
}

var mermaidFenceRe = regexp.MustCompile("(?s)```mermaid\\s*\\n(.*?)```")

// stripInvalidMermaidDiagrams implements spec §4.4 layer 7: every fenced
// mermaid block in text is checked for syntactic acceptability; blocks that
// fail are removed rather than failing the whole response.
func stripInvalidMermaidDiagrams(text string) string {
	return mermaidFenceRe.ReplaceAllStringFunc(text, func(block string) string {
		m := mermaidFenceRe.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		if isValidMermaidDiagram(m[1]) {
			return block
		}
		return ""
	})
}

// IsValidMermaidDiagram is the exported form of the same syntactic check
// layer 7 applies to fenced blocks, used by the quality controller's
// diagrams dimension (spec §4.7) to score a FileInsight.Diagram body that
// arrived unfenced.
func IsValidMermaidDiagram(body string) bool {
	return isValidMermaidDiagram(body)
}

// isValidMermaidDiagram checks that a diagram body opens with a recognized
// diagram type and has balanced brackets/parens, the two failure modes seen
// most often in truncated or hallucinated LLM output.
func isValidMermaidDiagram(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	firstLine := strings.TrimSpace(strings.SplitN(trimmed, "\n", 2)[0])
	hasKnownType := false
	for _, t := range mermaidDiagramTypes {
		if strings.HasPrefix(firstLine, t) {
			hasKnownType = true
			break
		}
	}
	if !hasKnownType {
		return false
	}
	return bracketsBalanced(trimmed)
}

func bracketsBalanced(s string) bool {
	depth := map[byte]int{}
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth[s[i]]++
		case ')', ']', '}':
			open := pairs[s[i]]
			if depth[open] == 0 {
				return false
			}
			depth[open]--
		}
	}
	for _, v := range depth {
		if v != 0 {
			return false
		}
	}
	return true
}
