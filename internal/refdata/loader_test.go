package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bordero/pkg/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTreatySlips(t *testing.T) {
	path := writeFile(t, "treaties.json", `[
		{
			"id": "TRT-9",
			"age_limit": 65,
			"parent_limit": {"minor_units": 50000000, "currency": "USD"},
			"valid_from": "2024-01-01T00:00:00Z",
			"valid_to": "2024-12-31T00:00:00Z",
			"exclusions": [{"condition": "war zone", "description": "war risk excluded"}]
		}
	]`)

	slips, err := LoadTreatySlips(path)
	require.NoError(t, err)
	require.Len(t, slips, 1)
	assert.Equal(t, domain.TreatyID("TRT-9"), slips[0].ID)
	assert.Equal(t, 65, slips[0].AgeLimit)
	require.Len(t, slips[0].Exclusions, 1)
	assert.True(t, slips[0].Exclusions[0].Matches(domain.BenefitDeath, []string{"war zone"}))
}

func TestLoadTreatySlips_RejectsInvertedWindow(t *testing.T) {
	path := writeFile(t, "treaties.json", `[
		{"id": "TRT-9", "valid_from": "2024-12-31T00:00:00Z", "valid_to": "2024-01-01T00:00:00Z"}
	]`)

	_, err := LoadTreatySlips(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validity window is inverted")
}

func TestLoadTreatySlips_RejectsMissingID(t *testing.T) {
	path := writeFile(t, "treaties.json", `[{"age_limit": 65}]`)

	_, err := LoadTreatySlips(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestLoadStatementLines(t *testing.T) {
	path := writeFile(t, "statements.json", `[
		{"cedant_id": "CED-001", "underwriting_year": 2024, "total_minor": 123450, "currency": "USD"}
	]`)

	lines, err := LoadStatementLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, domain.CedantID("CED-001"), lines[0].Cedant)
	assert.Equal(t, domain.UnderwritingYear(2024), lines[0].UnderwritingYear)
	assert.Equal(t, int64(123450), lines[0].Total.MinorUnits)
}

func TestLoadStatementLines_RejectsMissingCurrency(t *testing.T) {
	path := writeFile(t, "statements.json", `[
		{"cedant_id": "CED-001", "underwriting_year": 2024, "total_minor": 100}
	]`)

	_, err := LoadStatementLines(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no currency")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadTreatySlips(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
