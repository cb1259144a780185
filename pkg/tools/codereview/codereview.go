// Package codereview provides the built-in toolset for the iterative code
// review workflow: five analysis passes over Go source held in state, and
// the workflow definition that chains them behind a quality gate loop.
package codereview

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/registry"
)

var (
	funcDeclPattern  = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*\(`)
	ifPattern        = regexp.MustCompile(`\bif\b`)
	elsePattern      = regexp.MustCompile(`\belse\b`)
	forPattern       = regexp.MustCompile(`\bfor\b`)
	switchPattern    = regexp.MustCompile(`\bswitch\b`)
	panicPattern     = regexp.MustCompile(`\bpanic\(`)
	globalVarPattern = regexp.MustCompile(`(?m)^var\s`)
)

// Tools returns the toolset in pipeline order.
func Tools() []registry.Tool {
	return []registry.Tool{
		{Name: "extract_functions", Description: "Extract function declarations from Go source", Handler: ExtractFunctions},
		{Name: "check_complexity", Description: "Calculate code complexity metrics", Handler: CheckComplexity},
		{Name: "detect_issues", Description: "Detect common code issues and smells", Handler: DetectIssues},
		{Name: "suggest_improvements", Description: "Generate improvement suggestions based on detected issues", Handler: SuggestImprovements},
		{Name: "calculate_quality_score", Description: "Calculate overall code quality score", Handler: CalculateQualityScore},
	}
}

// Register adds the code review tools to reg.
func Register(reg *registry.Registry) error {
	for _, t := range Tools() {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// ExtractFunctions scans the source under the "code" key and records each
// declared function's name and line under "functions".
func ExtractFunctions(_ context.Context, state *domain.State) (*domain.State, error) {
	code, _ := state.GetString("code")

	functions := make([]any, 0)
	for _, match := range funcDeclPattern.FindAllStringSubmatchIndex(code, -1) {
		functions = append(functions, map[string]any{
			"name": code[match[2]:match[3]],
			"line": strings.Count(code[:match[0]], "\n") + 1,
		})
	}

	state.Set("functions", functions)
	state.Set("function_count", len(functions))
	return state, nil
}

// CheckComplexity computes a coarse complexity estimate from line counts
// and control structure density, stored under "complexity_scores".
func CheckComplexity(_ context.Context, state *domain.State) (*domain.State, error) {
	code, _ := state.GetString("code")
	functions := mapsFrom(state.GetOr("functions", nil))

	loc := 0
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		loc++
	}

	ifCount := len(ifPattern.FindAllString(code, -1))
	elseCount := len(elsePattern.FindAllString(code, -1))
	forCount := len(forPattern.FindAllString(code, -1))
	switchCount := len(switchPattern.FindAllString(code, -1))

	complexity := float64(loc)*0.1 +
		float64(ifCount+elseCount)*2 +
		float64(forCount+switchCount)*3

	perFunction := 5 + (float64(loc)/math.Max(float64(len(functions)), 1))*0.5
	functionComplexity := make(map[string]any, len(functions))
	for _, fn := range functions {
		if name, ok := fn["name"].(string); ok {
			functionComplexity[name] = perFunction
		}
	}

	state.Set("complexity_scores", map[string]any{
		"total_complexity":    round2(complexity),
		"lines_of_code":       loc,
		"control_structures":  ifCount + elseCount + forCount + switchCount,
		"function_complexity": functionComplexity,
	})
	return state, nil
}

// DetectIssues flags common smells: panic calls, package-level variable
// sprawl, undocumented functions, long lines and oversized files. Findings
// land under "issues".
func DetectIssues(_ context.Context, state *domain.State) (*domain.State, error) {
	code, _ := state.GetString("code")
	functions := mapsFrom(state.GetOr("functions", nil))
	lines := strings.Split(code, "\n")

	issues := make([]any, 0)

	if panicPattern.MatchString(code) {
		issues = append(issues, issue("panic_call", "medium",
			"panic call found - return an error instead"))
	}

	if n := len(globalVarPattern.FindAllString(code, -1)); n > 3 {
		issues = append(issues, issue("too_many_globals", "low",
			fmt.Sprintf("Found %d package-level variables - consider reducing", n)))
	}

	if len(functions) > 0 {
		documented := 0
		for _, fn := range functions {
			line := intValue(fn["line"])
			if line >= 2 && strings.HasPrefix(strings.TrimSpace(lines[line-2]), "//") {
				documented++
			}
		}
		if documented < len(functions) {
			issues = append(issues, issue("missing_doc_comments", "low",
				fmt.Sprintf("%d functions missing doc comments", len(functions)-documented)))
		}
	}

	longLines := 0
	for _, line := range lines {
		if len(line) > 100 {
			longLines++
		}
	}
	if longLines > 0 {
		issues = append(issues, issue("long_lines", "low",
			fmt.Sprintf("%d lines exceed 100 characters", longLines)))
	}

	nonBlank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	if nonBlank > 200 {
		issues = append(issues, issue("long_file", "medium",
			fmt.Sprintf("File has %d lines - consider splitting into smaller packages", nonBlank)))
	}

	state.Set("issues", issues)
	state.Set("issue_count", len(issues))
	return state, nil
}

// SuggestImprovements turns detected issues and complexity scores into
// human-readable advice under "suggestions".
func SuggestImprovements(_ context.Context, state *domain.State) (*domain.State, error) {
	issues := mapsFrom(state.GetOr("issues", nil))
	scores := mapValue(state.GetOr("complexity_scores", nil))

	issueTypes := make(map[string]bool, len(issues))
	for _, is := range issues {
		if kind, ok := is["type"].(string); ok {
			issueTypes[kind] = true
		}
	}

	suggestions := make([]any, 0)
	if issueTypes["panic_call"] {
		suggestions = append(suggestions, "Replace panic calls with explicit error returns")
	}
	if issueTypes["missing_doc_comments"] {
		suggestions = append(suggestions, "Add doc comments to all functions describing their purpose, parameters, and return values")
	}
	if issueTypes["long_lines"] {
		suggestions = append(suggestions, "Break long lines into multiple lines for better readability")
	}
	if issueTypes["long_file"] {
		suggestions = append(suggestions, "Consider splitting this file into smaller, focused packages")
	}
	if issueTypes["too_many_globals"] {
		suggestions = append(suggestions, "Reduce package-level variables by moving them into structs or function parameters")
	}

	if floatValue(scores["total_complexity"]) > 50 {
		suggestions = append(suggestions, "High complexity detected - consider refactoring into smaller functions")
	}
	if intValue(scores["lines_of_code"]) > 100 {
		suggestions = append(suggestions, "Consider breaking down large functions into smaller, reusable components")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Code looks good! Consider adding examples to the documentation")
	}

	state.Set("suggestions", suggestions)
	return state, nil
}

// CalculateQualityScore grades the source from 0 to 100 based on issue
// severity, complexity and length, then advances the "iterations" counter
// so loop conditions can bound the review.
func CalculateQualityScore(_ context.Context, state *domain.State) (*domain.State, error) {
	issues := mapsFrom(state.GetOr("issues", nil))
	scores := mapValue(state.GetOr("complexity_scores", nil))

	score := 100.0
	for _, is := range issues {
		switch is["severity"] {
		case "high":
			score -= 15
		case "medium":
			score -= 10
		default:
			score -= 5
		}
	}

	switch complexity := floatValue(scores["total_complexity"]); {
	case complexity > 100:
		score -= 20
	case complexity > 50:
		score -= 10
	case complexity > 25:
		score -= 5
	}

	switch loc := intValue(scores["lines_of_code"]); {
	case loc > 300:
		score -= 15
	case loc > 200:
		score -= 10
	case loc > 100:
		score -= 5
	}

	iterations, _ := state.GetInt("iterations")
	state.Set("quality_score", round2(math.Max(0, math.Min(100, score))))
	state.Set("iterations", iterations+1)
	return state, nil
}

func issue(kind, severity, message string) map[string]any {
	return map[string]any{"type": kind, "severity": severity, "message": message}
}

func mapsFrom(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func mapValue(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
