package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bordero/pkg/domain"
)

func validSubmission() Submission {
	return Submission{
		SchemaVersion: 1,
		Fields: map[string]string{
			FieldClaimNumber:      "CLM-2024-0042",
			FieldCedantID:         "CED-001",
			FieldBrokerRef:        "BRK/7781",
			FieldTreatyID:         "TRT-9",
			FieldParentID:         "P-77",
			FieldUnderwritingYear: "2024",
			FieldDateOfLoss:       "2024-03-15",
			FieldPaymentDate:      "2024-05-01",
			FieldInsuredAge:       "47",
			FieldPaidLoss:         "150000.00",
			FieldCurrency:         "USD",
			FieldBenefitType:      "Critical Illness",
			FieldConditions:       "Pre-existing; War Zone",
		},
		Confidence: map[string]float64{
			FieldClaimNumber: 0.99,
			FieldPaidLoss:    0.97,
			FieldDateOfLoss:  0.95,
		},
		ReceivedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNormalize_ValidSubmission(t *testing.T) {
	n := New(0.75)

	record, err := n.Normalize(validSubmission())
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimID{Cedant: "CED-001", Number: "CLM-2024-0042"}, record.ID)
	assert.Equal(t, domain.UnderwritingYear(2024), record.UnderwritingYear)
	assert.Equal(t, int64(15000000), record.PaidLoss.MinorUnits)
	assert.Equal(t, "USD", record.PaidLoss.Currency)
	assert.Equal(t, domain.BenefitCriticalIllness, record.BenefitType)
	assert.Equal(t, []string{"pre-existing", "war zone"}, record.Conditions)
	assert.Equal(t, 47, record.InsuredAge)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), record.DateOfLoss)
	assert.Empty(t, record.LowConfidenceFields)
	assert.Empty(t, n.AdvisoryFindings(record))
}

func TestNormalize_ConditionsDeduplicated(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	sub.Fields[FieldConditions] = "Pre-existing; WAR ZONE;; war zone ; Pre-existing"

	record, err := n.Normalize(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-existing", "war zone"}, record.Conditions)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	delete(sub.Fields, FieldClaimNumber)
	sub.Fields[FieldPaidLoss] = "  "

	_, err := n.Normalize(sub)
	require.Error(t, err)

	ne, ok := AsError(err)
	require.True(t, ok, "expected a normalization error")
	require.Len(t, ne.Fields, 2, "every missing field must be reported, not just the first")

	fields := []string{ne.Fields[0].Field, ne.Fields[1].Field}
	assert.Contains(t, fields, FieldClaimNumber)
	assert.Contains(t, fields, FieldPaidLoss)
}

func TestNormalize_MalformedFields(t *testing.T) {
	n := New(0.75)

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"bad amount", FieldPaidLoss, "one million"},
		{"negative amount", FieldPaidLoss, "-100.00"},
		{"bad date", FieldDateOfLoss, "sometime in march"},
		{"bad age", FieldInsuredAge, "240"},
		{"bad underwriting year", FieldUnderwritingYear, "1492"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			sub.Fields[tt.field] = tt.value

			_, err := n.Normalize(sub)
			require.Error(t, err)

			ne, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, ne.Fields[0].Field)
		})
	}
}

func TestNormalize_UnknownFieldsIgnored(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	sub.Fields["vessel_name"] = "MV Fortune"
	sub.Fields["weather"] = "heavy swell"

	_, err := n.Normalize(sub)
	require.NoError(t, err, "unknown fields must not crash or fail normalization")
}

func TestNormalize_DateFormats(t *testing.T) {
	n := New(0.75)

	for _, raw := range []string{"2024-03-15", "15/03/2024", "15.03.2024", "15 March 2024"} {
		sub := validSubmission()
		sub.Fields[FieldDateOfLoss] = raw

		record, err := n.Normalize(sub)
		require.NoError(t, err, "date %q", raw)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), record.DateOfLoss)
	}
}

func TestNormalize_UnderwritingYearFallsBackToLossYear(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	delete(sub.Fields, FieldUnderwritingYear)

	record, err := n.Normalize(sub)
	require.NoError(t, err)
	assert.Equal(t, domain.UnderwritingYear(2024), record.UnderwritingYear)
}

func TestNormalize_LowConfidenceMarkedNotRejected(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	sub.Confidence[FieldPaidLoss] = 0.42
	sub.Confidence[FieldBrokerRef] = 0.30

	record, err := n.Normalize(sub)
	require.NoError(t, err, "low confidence must not reject the claim")
	assert.Equal(t, []string{FieldBrokerRef, FieldPaidLoss}, record.LowConfidenceFields)

	findings := n.AdvisoryFindings(record)
	require.Len(t, findings, 1)
	assert.Equal(t, "advisory", string(findings[0].Severity))
	assert.Contains(t, findings[0].Evidence["fields"], FieldPaidLoss)
}

func TestNormalize_ConfidenceForAbsentFieldIgnored(t *testing.T) {
	n := New(0.75)

	sub := validSubmission()
	sub.Confidence["loss_location"] = 0.1 // score for a field the map doesn't carry

	record, err := n.Normalize(sub)
	require.NoError(t, err)
	assert.Empty(t, record.LowConfidenceFields)
}
