package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/paper-catalog/internal/paper"
)

var order = []string{"chemical", "physical", "climate", "social", "built"}

func TestRowsExpandsIndicators(t *testing.T) {
	rows := Rows([]paper.Paper{
		{Identifier: "smith2020", Domain: "chemical", Subdomain: "chemical.metals", Indicators: []string{"lead", "mercury", "lead"}},
		{Identifier: "bare", Domain: "social", Subdomain: "income"},
		{Identifier: "orphan"},
	})
	assert.Equal(t, []Row{
		{"chemical", "metals", "lead", "smith2020"},
		{"chemical", "metals", "mercury", "smith2020"},
		{"social", "income", None, "bare"},
		{None, None, None, "orphan"},
	}, rows)
}

func TestSortRanksDomains(t *testing.T) {
	rows := []Row{
		{None, None, None, "z"},
		{"zoology", "birds", "wings", "a"},
		{"built", "housing", "density", "b"},
		{"astro", "stars", "mass", "c"},
		{"chemical", "metals", "mercury", "d"},
		{"chemical", "metals", "lead", "e"},
		{"chemical", "air", "pm25", "f"},
		{"climate", "heat", "days", "g"},
	}
	Sort(rows, order)

	var got []string
	for _, r := range rows {
		got = append(got, r.Paper)
	}
	assert.Equal(t, []string{"f", "e", "d", "g", "b", "c", "a", "z"}, got)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Row{
		{"chemical", "metals", "lead", "smith2020"},
		{"social", "income, wealth", None, "bare"},
	}))
	want := strings.Join([]string{
		"domain,subdomain,indicator,paper",
		"chemical,metals,lead,smith2020",
		`social,"income, wealth",(none),bare`,
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestMindmap(t *testing.T) {
	rows := Rows([]paper.Paper{
		{Identifier: "smith2020", Domain: "chemical", Subdomain: "metals", Indicators: []string{"lead", "mercury"}},
		{Identifier: "wu2019", Domain: "chemical", Subdomain: "metals", Indicators: []string{"lead"}},
		{Identifier: "kim2018", Domain: "climate", Subdomain: "heat", Indicators: []string{"days"}},
	})
	Sort(rows, order)

	want := strings.Join([]string{
		"# Exposome Mindmap",
		"",
		"- chemical",
		"  - metals",
		"    - lead",
		"      - `smith2020`",
		"      - `wu2019`",
		"    - mercury",
		"      - `smith2020`",
		"- climate",
		"  - heat",
		"    - days",
		"      - `kim2018`",
		"",
	}, "\n")
	assert.Equal(t, want, Mindmap(rows, "Exposome Mindmap"))
	assert.Equal(t, "# Empty\n\n", Mindmap(nil, "Empty"))
}
