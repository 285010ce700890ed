package tools

import "strings"

// categoryPatterns fallback trigger phrases per category. Read-only.
var categoryPatterns = map[Category][]string{
	CategoryWeb:           {"fetch", "download", "scrape", "get url", "http", "api call"},
	CategoryFile:          {"read file", "write file", "save to", "load from", "open file"},
	CategoryData:          {"parse", "transform", "filter", "aggregate", "sort"},
	CategoryCalculation:   {"calculate", "compute", "sum", "average", "count"},
	CategoryCommunication: {"send email", "notify", "message", "alert"},
	CategorySystem:        {"execute", "run command", "shell", "process"},
}

// CategoryPatterns returns a copy of the fallback phrases for a category
func CategoryPatterns(c Category) []string {
	patterns := categoryPatterns[c]
	out := make([]string, len(patterns))
	copy(out, patterns)
	return out
}

// matchesKeyword reports whether any keyword is contained in the lower-cased task
func matchesKeyword(taskLower string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(taskLower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// matchesCategory reports whether the category's fallback phrases match the task
func matchesCategory(taskLower string, c Category) bool {
	for _, pattern := range categoryPatterns[c] {
		if strings.Contains(taskLower, pattern) {
			return true
		}
	}
	return false
}
