package fuel

import "github.com/auditware/fiscal-cli/internal/model"

// Summary groups finding counts by severity and by type.
type Summary struct {
	Total      int                             `json:"total"`
	BySeverity map[model.Severity]int          `json:"by_severity"`
	ByType     map[model.InconsistencyType]int `json:"by_type"`
}

// Summarize counts findings by severity and type.
func Summarize(findings []model.Inconsistency) Summary {
	s := Summary{
		Total:      len(findings),
		BySeverity: make(map[model.Severity]int),
		ByType:     make(map[model.InconsistencyType]int),
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByType[f.Type]++
	}
	return s
}
