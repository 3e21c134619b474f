package refdata

import (
	"encoding/json"
	"fmt"
	"os"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
)

// LoadTreatySlips reads treaty slips from a JSON file: an array of TreatySlip
// objects. Reference data arrives from the treaty administration system as a
// periodic file drop.
func LoadTreatySlips(path string) ([]TreatySlip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read treaty file: %w", err)
	}
	var slips []TreatySlip
	if err := json.Unmarshal(data, &slips); err != nil {
		return nil, fmt.Errorf("parse treaty file %s: %w", path, err)
	}
	for i, slip := range slips {
		if slip.ID == "" {
			return nil, fmt.Errorf("treaty file %s: slip %d has no id", path, i)
		}
		if slip.ValidTo.Before(slip.ValidFrom) {
			return nil, fmt.Errorf("treaty file %s: slip %s validity window is inverted", path, slip.ID)
		}
	}
	return slips, nil
}

// statementLine is the file shape of one cedant statement total.
type statementLine struct {
	CedantID         string `json:"cedant_id"`
	UnderwritingYear int    `json:"underwriting_year"`
	TotalMinor       int64  `json:"total_minor"`
	Currency         string `json:"currency"`
}

// LoadStatementLines reads cedant statement totals from a JSON file.
func LoadStatementLines(path string) ([]models.StatementLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read statement file: %w", err)
	}
	var raw []statementLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse statement file %s: %w", path, err)
	}

	lines := make([]models.StatementLine, 0, len(raw))
	for i, r := range raw {
		cedant, err := domain.ParseCedantID(r.CedantID)
		if err != nil {
			return nil, fmt.Errorf("statement file %s: line %d: %w", path, i, err)
		}
		if r.Currency == "" {
			return nil, fmt.Errorf("statement file %s: line %d has no currency", path, i)
		}
		lines = append(lines, models.StatementLine{
			Cedant:           cedant,
			UnderwritingYear: domain.UnderwritingYear(r.UnderwritingYear),
			Total:            domain.Money{MinorUnits: r.TotalMinor, Currency: r.Currency},
		})
	}
	return lines, nil
}
