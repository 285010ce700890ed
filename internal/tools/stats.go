package tools

// ToolStats usage counts for a single tool
type ToolStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Stats aggregate usage statistics
type Stats struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failure int                  `json:"failure"`
	ByTool  map[string]ToolStats `json:"by_tool"`
}

// SuccessRate returns the fraction of successful executions, 0 when empty
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// UsageStats summarizes the usage log in a single pass
func (r *Registry) UsageStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{ByTool: make(map[string]ToolStats)}
	for _, record := range r.usage {
		ts := stats.ByTool[record.Tool]
		ts.Total++
		stats.Total++
		if record.Success {
			ts.Success++
			stats.Success++
		} else {
			ts.Failure++
			stats.Failure++
		}
		stats.ByTool[record.Tool] = ts
	}
	return stats
}
