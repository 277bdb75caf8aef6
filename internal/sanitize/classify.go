package sanitize

import "strings"

// TaskCategory is the classification bucket for a task description.
type TaskCategory string

const (
	CategoryAnalysis      TaskCategory = "ANALYSIS"
	CategoryExtraction    TaskCategory = "EXTRACTION"
	CategorySummarization TaskCategory = "SUMMARIZATION"
	CategoryValidation    TaskCategory = "VALIDATION"
	CategoryGeneral       TaskCategory = "GENERAL"
)

// Classify returns the first matching category by fixed priority order.
// Exactly one category is returned for any input.
func Classify(task string) TaskCategory {
	lower := strings.ToLower(task)
	switch {
	case strings.Contains(lower, "analyze") || strings.Contains(lower, "review"):
		return CategoryAnalysis
	case strings.Contains(lower, "extract") || strings.Contains(lower, "parse"):
		return CategoryExtraction
	case strings.Contains(lower, "summarize") || strings.Contains(lower, "summary"):
		return CategorySummarization
	case strings.Contains(lower, "validate") || strings.Contains(lower, "check"):
		return CategoryValidation
	default:
		return CategoryGeneral
	}
}
