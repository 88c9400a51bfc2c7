// Package stats aggregates persisted log records for dashboard views.
package stats

import "github.com/logboard/api/internal/model"

// NamedCount is a label with an occurrence count
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary holds cross-record aggregates for the bulk stats view
type Summary struct {
	ErrorTypes     []NamedCount `json:"errorTypes"`
	IPDistribution []NamedCount `json:"ipDistribution"`
}

// Summarize counts error messages and IP occurrences across records.
// Output order follows first appearance, so repeated calls over the
// same input are identical.
func Summarize(records []model.LogRecord) *Summary {
	errorCounts := map[string]int{}
	errorOrder := []string{}
	ipCounts := map[string]int{}
	ipOrder := []string{}

	for _, record := range records {
		for _, e := range record.Errors {
			if _, seen := errorCounts[e.Message]; !seen {
				errorOrder = append(errorOrder, e.Message)
			}
			errorCounts[e.Message]++
		}
		for _, ip := range record.IPs {
			if _, seen := ipCounts[ip]; !seen {
				ipOrder = append(ipOrder, ip)
			}
			ipCounts[ip]++
		}
	}

	summary := &Summary{
		ErrorTypes:     make([]NamedCount, 0, len(errorOrder)),
		IPDistribution: make([]NamedCount, 0, len(ipOrder)),
	}
	for _, name := range errorOrder {
		summary.ErrorTypes = append(summary.ErrorTypes, NamedCount{Name: name, Count: errorCounts[name]})
	}
	for _, name := range ipOrder {
		summary.IPDistribution = append(summary.IPDistribution, NamedCount{Name: name, Count: ipCounts[name]})
	}
	return summary
}
