/*
Package dsl provides a fluent builder for constructing workflow graphs in
Go code, as an alternative to YAML or JSON definitions. It is useful for
dynamic graph generation, unit tests, and anywhere IDE autocompletion and
type checking beat an external file.

Example usage:

	b := dsl.New("review")

	b.Node("analyze").Do(analyzeHandler).
		Go("grade")

	b.Node("grade").Do(gradeHandler).
		Branch("score < 70", "analyze")

	g, err := b.Build()

Nodes declare their outgoing transitions in order; the first matching
transition wins at runtime. The first node added becomes the entry unless
Entry overrides it.
*/
package dsl
