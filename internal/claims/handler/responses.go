package handler

import (
	"time"

	"bordero/internal/claims/models"
	"bordero/internal/engine"
)

// FindingView is the wire shape of one check finding.
type FindingView struct {
	Check    string            `json:"check"`
	Kind     string            `json:"kind"`
	Severity string            `json:"severity"`
	Message  string            `json:"message"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

// VerdictView is the wire shape of a composed verdict.
type VerdictView struct {
	Cedant        string        `json:"cedant_id"`
	ClaimNumber   string        `json:"claim_number"`
	State         string        `json:"state"`
	Findings      []FindingView `json:"findings"`
	RiskScore     float64       `json:"risk_score"`
	RiskLevel     string        `json:"risk_level"`
	Version       int           `json:"version"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	Justification string        `json:"justification,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FromVerdict maps a domain verdict to its wire shape.
func FromVerdict(v models.Verdict) VerdictView {
	findings := make([]FindingView, 0, len(v.Findings))
	for _, f := range v.Findings {
		findings = append(findings, FindingView{
			Check:    string(f.Check),
			Kind:     f.Kind,
			Severity: string(f.Severity),
			Message:  f.Message,
			Evidence: f.Evidence,
		})
	}
	return VerdictView{
		Cedant:        string(v.Claim.Cedant),
		ClaimNumber:   string(v.Claim.Number),
		State:         string(v.State),
		Findings:      findings,
		RiskScore:     v.RiskScore,
		RiskLevel:     string(v.RiskLevel),
		Version:       v.Version,
		DecidedBy:     v.DecidedBy,
		Justification: v.Justification,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

// BatchItemView is the per-submission outcome of a batch request.
type BatchItemView struct {
	Index   int          `json:"index"`
	Verdict *VerdictView `json:"verdict,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BatchView is the response body of POST /claims/batch.
type BatchView struct {
	Results []BatchItemView `json:"results"`
}

// FromBatch maps batch results to their wire shape.
func FromBatch(results []engine.BatchResult) BatchView {
	items := make([]BatchItemView, 0, len(results))
	for _, r := range results {
		item := BatchItemView{Index: r.Index}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			v := FromVerdict(r.Verdict)
			item.Verdict = &v
		}
		items = append(items, item)
	}
	return BatchView{Results: items}
}
