package handler

import (
	"fmt"
	"time"

	"bordero/internal/normalizer"
	dErrors "bordero/pkg/domain-errors"
)

// maxBatchSize caps one batch request; larger bordereaux are split upstream.
const maxBatchSize = 500

// SubmitRequest is the HTTP request body for POST /claims: the raw field map
// handed over by the extraction collaborator.
type SubmitRequest struct {
	SchemaVersion   int                `json:"schema_version"`
	Fields          map[string]string  `json:"fields"`
	Confidence      map[string]float64 `json:"confidence"`
	SourceDocuments []string           `json:"source_documents"`
	ReceivedAt      time.Time          `json:"received_at"`
}

// Validate checks transport-level shape only; field semantics are the
// normalizer's job.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.SchemaVersion != 1 {
		return dErrors.Newf(dErrors.CodeValidation, "unsupported schema version %d", r.SchemaVersion)
	}
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields are required")
	}
	for field, score := range r.Confidence {
		if score < 0 || score > 1 {
			return dErrors.Newf(dErrors.CodeValidation, "confidence for %q out of [0,1]", field)
		}
	}
	return nil
}

// Submission converts the request to the normalizer boundary type.
func (r *SubmitRequest) Submission() normalizer.Submission {
	return normalizer.Submission{
		SchemaVersion:   r.SchemaVersion,
		Fields:          r.Fields,
		Confidence:      r.Confidence,
		SourceDocuments: r.SourceDocuments,
		ReceivedAt:      r.ReceivedAt,
	}
}

// BatchRequest is the HTTP request body for POST /claims/batch.
type BatchRequest struct {
	Submissions []SubmitRequest `json:"submissions"`
}

// Validate checks the batch envelope and every submission in it.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Submissions) == 0 {
		return dErrors.New(dErrors.CodeValidation, "submissions are required")
	}
	if len(r.Submissions) > maxBatchSize {
		return dErrors.Newf(dErrors.CodeValidation, "batch exceeds %d submissions", maxBatchSize)
	}
	for i := range r.Submissions {
		if err := r.Submissions[i].Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("submission %d", i))
		}
	}
	return nil
}
