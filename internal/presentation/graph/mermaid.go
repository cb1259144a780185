// Package graph renders workflow definitions as Mermaid flowcharts for the
// CLI and the HTTP API.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateflow/pkg/definition"
)

// RunOverlay highlights a run's path on top of the static graph.
type RunOverlay struct {
	VisitedNodes []string
	FailedNode   string
}

// GenerateMermaid produces Mermaid flowchart syntax for a definition.
// Shapes carry the node's role:
//   - entry: ((circle))
//   - terminal (no outgoing edges): [[subroutine]]
//   - everything else: [rectangle]
//
// Conditional edges get their condition text as the arrow label. An
// overlay, when given, styles visited and failed nodes.
func GenerateMermaid(def definition.GraphDefinition, overlay *RunOverlay) string {
	entry := def.EntryNode()

	outgoing := make(map[string]int, len(def.Nodes))
	for _, e := range def.Edges {
		outgoing[e.From]++
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range def.Nodes {
		safeID := sanitizeID(node.Name)

		opener, closer := "[", "]"
		switch {
		case node.Name == entry:
			opener, closer = "((", "))"
		case outgoing[node.Name] == 0:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.Name, closer)
	}

	for _, e := range def.Edges {
		arrow := "-->"
		if e.Condition != "" {
			// Mermaid labels cannot hold double quotes.
			label := strings.ReplaceAll(e.Condition, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", label)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeID(e.From), arrow, sanitizeID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Run overlay\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.VisitedNodes {
			safeID := sanitizeID(name)
			if safeID == "" || seen[safeID] || name == overlay.FailedNode {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func sanitizeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
