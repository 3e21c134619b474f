// Package sics posts approved claims to the downstream reinsurance
// administration system of record.
package sics

import (
	"context"
	"time"

	"bordero/pkg/domain"
)

//go:generate mockgen -source=poster.go -destination=mocks/poster_mock.go -package=mocks Poster

// ClaimPosting is the payload sent when a claim clears validation.
type ClaimPosting struct {
	CedantID         string    `json:"cedant_id"`
	ClaimNumber      string    `json:"claim_number"`
	TreatyID         string    `json:"treaty_id"`
	UnderwritingYear int       `json:"underwriting_year"`
	DateOfLoss       time.Time `json:"date_of_loss"`
	PaidLossMinor    int64     `json:"paid_loss_minor"`
	Currency         string    `json:"currency"`
	BenefitType      string    `json:"benefit_type"`
	BrokerRef        string    `json:"broker_ref"`
}

// PostingResult carries the downstream booking reference.
type PostingResult struct {
	Reference string    `json:"reference"`
	PostedAt  time.Time `json:"posted_at"`
}

// CreditNote acknowledges a booked claim back to the cedant account. It is
// issued after the claim posting succeeds and references its booking.
type CreditNote struct {
	CedantID    string    `json:"cedant_id"`
	ClaimNumber string    `json:"claim_number"`
	Reference   string    `json:"reference"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Poster books approved claims downstream. Implementations must be safe for
// concurrent use.
type Poster interface {
	PostClaim(ctx context.Context, posting ClaimPosting) (PostingResult, error)
	PostCreditNote(ctx context.Context, note CreditNote) error
}

// NewCreditNote builds the cedant acknowledgement for a booked posting.
func NewCreditNote(posting ClaimPosting, result PostingResult) CreditNote {
	return CreditNote{
		CedantID:    posting.CedantID,
		ClaimNumber: posting.ClaimNumber,
		Reference:   result.Reference,
		AmountMinor: posting.PaidLossMinor,
		Currency:    posting.Currency,
		IssuedAt:    result.PostedAt,
	}
}

// NewPosting builds the downstream payload from a validated claim record.
func NewPosting(id domain.ClaimID, treaty domain.TreatyID, year domain.UnderwritingYear,
	dateOfLoss time.Time, paidLoss domain.Money, benefit domain.BenefitType, ref domain.BrokerRef) ClaimPosting {
	return ClaimPosting{
		CedantID:         string(id.Cedant),
		ClaimNumber:      string(id.Number),
		TreatyID:         string(treaty),
		UnderwritingYear: int(year),
		DateOfLoss:       dateOfLoss,
		PaidLossMinor:    paidLoss.MinorUnits,
		Currency:         paidLoss.Currency,
		BenefitType:      string(benefit),
		BrokerRef:        string(ref),
	}
}
