// Package normalizer canonicalizes raw extracted claim fields into a
// validated ClaimRecord. It is the trust boundary between the extraction
// collaborator and the engine: nothing downstream touches raw field maps.
package normalizer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
	pstrings "bordero/pkg/platform/strings"
)

// Submission is the input boundary record from the extraction collaborator:
// a raw field map with per-field confidence scores. The schema is versioned;
// unknown fields are ignored rather than rejected.
type Submission struct {
	SchemaVersion   int                `json:"schema_version"`
	Fields          map[string]string  `json:"fields"`
	Confidence      map[string]float64 `json:"confidence"`
	SourceDocuments []string           `json:"source_documents"`
	ReceivedAt      time.Time          `json:"received_at"`
}

// Known field names of schema version 1.
const (
	FieldClaimNumber      = "claim_number"
	FieldCedantID         = "cedant_id"
	FieldBrokerRef        = "broker_reference"
	FieldTreatyID         = "treaty_id"
	FieldParentID         = "parent_id"
	FieldUnderwritingYear = "underwriting_year"
	FieldDateOfLoss       = "date_of_loss"
	FieldPaymentDate      = "payment_date"
	FieldInsuredAge       = "insured_age"
	FieldPaidLoss         = "paid_loss_amount"
	FieldCurrency         = "currency"
	FieldBenefitType      = "benefit_type"
	FieldConditions       = "conditions"
)

// requiredFields fail normalization when absent or uncoercible. Everything
// else degrades to a zero value plus, where confidence is low, an advisory.
var requiredFields = []string{FieldClaimNumber, FieldCedantID, FieldPaidLoss, FieldDateOfLoss}

// FieldError describes one missing or malformed field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error lists every field that failed coercion so the submitter can fix the
// document in one pass. Claims failing normalization are parked for manual
// fix; they never reach the aggregates.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Field + ": " + fe.Reason
	}
	return "normalization failed: " + strings.Join(parts, "; ")
}

// AsError extracts a normalization Error from an error chain.
func AsError(err error) (*Error, bool) {
	var ne *Error
	ok := errors.As(err, &ne)
	return ne, ok
}

// Normalizer is a pure field canonicalizer. It holds only configuration and
// is safe for concurrent use.
type Normalizer struct {
	confidenceThreshold float64
}

// New builds a Normalizer. Fields whose extraction confidence falls below
// threshold are kept but marked on the record.
func New(confidenceThreshold float64) *Normalizer {
	return &Normalizer{confidenceThreshold: confidenceThreshold}
}

// acceptedDateLayouts covers the formats cedant documents actually use.
var acceptedDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"2 January 2006",
}

// Normalize converts a raw submission into a ClaimRecord or an *Error listing
// every missing/malformed field. Pure function: no I/O, no side effects.
func (n *Normalizer) Normalize(sub Submission) (models.ClaimRecord, error) {
	var fieldErrs []FieldError

	missing := func(field string) bool {
		v, ok := sub.Fields[field]
		return !ok || strings.TrimSpace(v) == ""
	}
	for _, field := range requiredFields {
		if missing(field) {
			fieldErrs = append(fieldErrs, FieldError{Field: field, Reason: "required field is missing"})
		}
	}
	if len(fieldErrs) > 0 {
		return models.ClaimRecord{}, &Error{Fields: fieldErrs}
	}

	record := models.ClaimRecord{
		SchemaVersion:   sub.SchemaVersion,
		SourceDocuments: sub.SourceDocuments,
		ReceivedAt:      sub.ReceivedAt,
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	fail := func(field, reason string) {
		fieldErrs = append(fieldErrs, FieldError{Field: field, Reason: reason})
	}

	if cedant, err := domain.ParseCedantID(sub.Fields[FieldCedantID]); err != nil {
		fail(FieldCedantID, err.Error())
	} else {
		record.ID.Cedant = cedant
	}
	if number, err := domain.ParseClaimNumber(sub.Fields[FieldClaimNumber]); err != nil {
		fail(FieldClaimNumber, err.Error())
	} else {
		record.ID.Number = number
	}

	currency := strings.TrimSpace(sub.Fields[FieldCurrency])
	if currency == "" {
		fail(FieldCurrency, "currency is required alongside paid_loss_amount")
	} else if paid, err := domain.ParseMoney(sub.Fields[FieldPaidLoss], currency); err != nil {
		fail(FieldPaidLoss, err.Error())
	} else if paid.MinorUnits < 0 {
		fail(FieldPaidLoss, "paid loss cannot be negative")
	} else {
		record.PaidLoss = paid
	}

	if dol, err := parseDate(sub.Fields[FieldDateOfLoss]); err != nil {
		fail(FieldDateOfLoss, err.Error())
	} else {
		record.DateOfLoss = dol
	}

	// Optional fields: coerce when present, record an error only on
	// malformed values, never on absence.
	if v := strings.TrimSpace(sub.Fields[FieldPaymentDate]); v != "" {
		if pd, err := parseDate(v); err != nil {
			fail(FieldPaymentDate, err.Error())
		} else {
			record.PaymentDate = pd
		}
	}
	if v := strings.TrimSpace(sub.Fields[FieldUnderwritingYear]); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			fail(FieldUnderwritingYear, "not a number")
		} else if uwy, err := domain.ParseUnderwritingYear(year, time.Now().Year()); err != nil {
			fail(FieldUnderwritingYear, err.Error())
		} else {
			record.UnderwritingYear = uwy
		}
	} else if !record.DateOfLoss.IsZero() {
		// Bordereaux frequently omit the underwriting year; fall back to the
		// loss year so the claim still lands in an aggregation bucket.
		record.UnderwritingYear = domain.UnderwritingYear(record.DateOfLoss.Year())
	}
	if v := strings.TrimSpace(sub.Fields[FieldInsuredAge]); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil || age < 0 || age > 130 {
			fail(FieldInsuredAge, "not a plausible age")
		} else {
			record.InsuredAge = age
		}
	}

	record.BrokerRef = domain.BrokerRef(strings.TrimSpace(sub.Fields[FieldBrokerRef]))
	record.TreatyID = domain.TreatyID(strings.TrimSpace(sub.Fields[FieldTreatyID]))
	record.ParentID = domain.ParentID(strings.TrimSpace(sub.Fields[FieldParentID]))
	record.BenefitType = domain.ParseBenefitType(sub.Fields[FieldBenefitType])
	if v := strings.TrimSpace(sub.Fields[FieldConditions]); v != "" {
		// Cedants repeat condition codes across bordereau columns; keep one
		// lowercase copy of each in first-seen order.
		record.Conditions = pstrings.DedupeAndTrimLower(strings.Split(v, ";"))
	}

	if len(fieldErrs) > 0 {
		return models.ClaimRecord{}, &Error{Fields: fieldErrs}
	}

	record.Confidence = overallConfidence(sub.Confidence)
	record.LowConfidenceFields = n.lowConfidenceFields(sub)

	return record, nil
}

// AdvisoryFindings reports extraction-quality advisories for a normalized
// record. Low confidence never hard-fails a claim but must reach the
// supervisor as context.
func (n *Normalizer) AdvisoryFindings(record models.ClaimRecord) []models.Finding {
	if len(record.LowConfidenceFields) == 0 {
		return nil
	}
	return []models.Finding{{
		Check:    models.CheckNormalization,
		Kind:     models.KindLowConfidence,
		Claim:    record.ID,
		Severity: models.SeverityAdvisory,
		Message:  fmt.Sprintf("%d field(s) extracted below confidence %.2f", len(record.LowConfidenceFields), n.confidenceThreshold),
		Evidence: map[string]string{
			"fields": strings.Join(record.LowConfidenceFields, ","),
		},
	}}
}

func (n *Normalizer) lowConfidenceFields(sub Submission) []string {
	var low []string
	for field, score := range sub.Confidence {
		if _, present := sub.Fields[field]; !present {
			continue
		}
		if score < n.confidenceThreshold {
			low = append(low, field)
		}
	}
	sort.Strings(low)
	return low
}

func overallConfidence(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
