// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package modeling

import (
	"slices"
	"strings"

	"github.com/pdiddy/gioia-engine/internal/llm"
)

// diagramKeywords open a Mermaid diagram.
var diagramKeywords = []string{
	"flowchart",
	"graph",
	"sequenceDiagram",
	"classDiagram",
	"classDiagram-v2",
	"stateDiagram",
	"stateDiagram-v2",
	"erDiagram",
	"mindmap",
	"journey",
	"gantt",
	"pie",
}

var directions = []string{"TB", "TD", "BT", "RL", "LR"}

// diagramArgs lists the tokens that may follow a keyword on the opening
// line. Keywords missing here stand alone.
var diagramArgs = map[string][]string{
	"flowchart": directions,
	"graph":     directions,
	"pie":       {"title", "showData"},
}

// CleanDiagram extracts Mermaid source from model output. When the output
// holds a fenced block only its body is considered. Everything before the
// first line opening a diagram is dropped. Output without an opening line
// is returned with fences stripped.
func CleanDiagram(raw string) string {
	if body, ok := firstFence(raw); ok {
		raw = body
	}
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if startsDiagram(strings.TrimSpace(line)) {
			lines[i] = strings.TrimSpace(line)
			return llm.StripFences(strings.Join(lines[i:], "\n"))
		}
	}
	return llm.StripFences(raw)
}

// firstFence returns the body of the first ``` block. An unclosed block
// runs to the end of s.
func firstFence(s string) (string, bool) {
	lines := strings.Split(s, "\n")
	open := -1
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		body := strings.Join(lines[open+1:i], "\n")
		return body, strings.TrimSpace(body) != ""
	}
	if open < 0 {
		return "", false
	}
	body := strings.Join(lines[open+1:], "\n")
	return body, strings.TrimSpace(body) != ""
}

// startsDiagram reports whether line opens a diagram: a keyword alone, or
// followed by one of its accepted arguments ("graph TD", "pie title Votes").
func startsDiagram(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	kw := strings.TrimSuffix(fields[0], ";")
	if !slices.Contains(diagramKeywords, kw) {
		return false
	}
	if len(fields) == 1 {
		return true
	}
	return slices.Contains(diagramArgs[kw], strings.TrimSuffix(fields[1], ";"))
}
