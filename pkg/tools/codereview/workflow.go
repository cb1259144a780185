package codereview

import "github.com/aretw0/stateflow/pkg/definition"

// Default gate settings for the review loop.
const (
	DefaultThreshold     = 70.0
	DefaultMaxIterations = 3
)

// Definition returns the code review workflow: five analysis nodes in
// sequence, with a loop edge that re-runs the scoring tail while the
// quality score is below the threshold and the iteration budget holds.
func Definition() definition.GraphDefinition {
	return definition.GraphDefinition{
		Name:        "code_review",
		Description: "Reviews Go source and iterates until the quality score clears the threshold",
		Nodes: []definition.NodeDefinition{
			{Name: "extract_functions", Description: "Extract function declarations from Go source"},
			{Name: "check_complexity", Description: "Calculate code complexity metrics"},
			{Name: "detect_issues", Description: "Detect common code issues and smells"},
			{Name: "suggest_improvements", Description: "Generate improvement suggestions"},
			{Name: "calculate_score", Tool: "calculate_quality_score", Description: "Calculate overall quality score"},
		},
		Edges: []definition.EdgeDefinition{
			{From: "extract_functions", To: "check_complexity"},
			{From: "check_complexity", To: "detect_issues"},
			{From: "detect_issues", To: "suggest_improvements"},
			{From: "suggest_improvements", To: "calculate_score"},
			{From: "calculate_score", To: "detect_issues", Condition: "quality_score < threshold && iterations < max_iterations"},
		},
	}
}

// InitialState seeds a review of src. Pass DefaultThreshold and
// DefaultMaxIterations for the stock gate settings.
func InitialState(src string, threshold float64, maxIterations int) map[string]any {
	return map[string]any{
		"code":           src,
		"threshold":      threshold,
		"max_iterations": maxIterations,
		"iterations":     0,
	}
}

// SampleCode is a Go snippet that trips every detector. Handy for demos
// and smoke tests.
const SampleCode = `var defaultRetries = 3
var defaultTimeout = 30
var verboseOutput = false
var strictChecks = true

func categorize(values []int) map[string]int {
	counts := map[string]int{}
	for _, v := range values {
		if v < 0 {
			counts["negative"]++
		} else if v == 0 {
			counts["zero"]++
		} else {
			counts["positive"]++
		}
	}
	return counts
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	default:
		return "D"
	}
}

func resolve(matrix [][]int, limit int) int {
	total := 0
	for i := 0; i < len(matrix); i++ {
		for j := 0; j < len(matrix[i]); j++ {
			if matrix[i][j] > limit {
				total += matrix[i][j]
			} else if matrix[i][j] < -limit {
				total -= matrix[i][j]
			} else {
				total++
			}
		}
	}
	if total < 0 {
		panic("unbalanced matrix")
	}
	return total
}

func validate(input map[string]string) error {
	for field, value := range input {
		if value == "" {
			return fmt.Errorf("field %s is empty", field)
		}
		if len(value) > 64 {
			return fmt.Errorf("field %s is too long", field)
		}
	}
	return nil
}

func summarize(counts map[string]int, labels map[string]string, prefix string, suffix string, separator string) string {
	out := prefix
	for key, count := range counts {
		if label, ok := labels[key]; ok {
			out += separator + label
		} else {
			out += separator + key
		}
		if count > 1 {
			out += "s"
		}
	}
	return out + suffix
}
`
