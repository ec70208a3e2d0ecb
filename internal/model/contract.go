package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Contract is the backend's view of an uploaded document. The analysis arrives as
// a JSON string produced by the backend's model and is decoded separately.
type Contract struct {
	ID            string `json:"id"`
	OwnerUsername string `json:"ownerUsername,omitempty"`
	Filename      string `json:"filename"`
	UploadDate    string `json:"uploadDate"`
	RawText       string `json:"rawText,omitempty"`
	AnalysisJSON  string `json:"analysisJson,omitempty"`
	RiskLevel     string `json:"riskLevel,omitempty"`
}

type Analysis struct {
	Summary         string    `json:"summary"`
	RiskScore       RiskScore `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	KeyRisks        []KeyRisk `json:"key_risks"`
	MissingClauses  []string  `json:"missing_clauses"`
	Recommendations []string  `json:"recommendations"`
}

type KeyRisk struct {
	Clause          string `json:"clause"`
	RiskExplanation string `json:"risk_explanation"`
	Severity        string `json:"severity"`
}

// RiskScore accepts both 42 and "42"; the analysis model is not strict about types.
type RiskScore int

func (s *RiskScore) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*s = 0
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		raw = strings.TrimSpace(asString)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = RiskScore(int(f))
	return nil
}

// Severity buckets a free-form level ("High", "medium risk", ...) into low/medium/high.
func Severity(level string) string {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "high"):
		return "high"
	case strings.Contains(l, "medium"):
		return "medium"
	case l == "":
		return "unknown"
	default:
		return "low"
	}
}
