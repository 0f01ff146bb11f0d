package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/paper-catalog/internal/paper"
)

var catalog = []paper.Paper{
	{Identifier: "smith2020", Domain: "chemical", Subdomain: "metals", Indicators: []string{"lead", "mercury"}},
	{Identifier: "lee2021", Domain: "NLP", Subdomain: "summarization", Indicators: []string{"ROUGE"}},
	{Identifier: "wu2019", Domain: "chemical", Subdomain: "chemical.metals", Indicators: []string{"cadmium"}},
	{Identifier: "ng2022", Domain: "chemical", Subdomain: "persistent", Indicators: []string{"pfas", "lead"}},
}

func identifiers(papers []paper.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.Identifier
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero", Filter{}, []string{"smith2020", "lee2021", "wu2019", "ng2022"}},
		{"domain", Filter{Domain: "chemical"}, []string{"smith2020", "wu2019", "ng2022"}},
		{"subdomain-tail-and-full", Filter{Domain: "chemical", Subdomain: "metals"}, []string{"smith2020", "wu2019"}},
		{"subdomain-full-key", Filter{Subdomain: "chemical.metals"}, []string{"smith2020", "wu2019"}},
		{"indicator", Filter{Indicator: "lead"}, []string{"smith2020", "ng2022"}},
		{"text-identifier", Filter{Text: "LEE"}, []string{"lee2021"}},
		{"text-indicator", Filter{Text: "rouge"}, []string{"lee2021"}},
		{"no-match", Filter{Domain: "climate"}, []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, identifiers(Apply(catalog, test.filter)))
		})
	}
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{Text: "x"}.IsZero())
}

func TestFind(t *testing.T) {
	p, ok := Find(catalog, "wu2019")
	require.True(t, ok)
	assert.Equal(t, "cadmium", p.Indicators[0])
	_, ok = Find(catalog, "nobody")
	assert.False(t, ok)
}

func TestGroupByDomain(t *testing.T) {
	groups := GroupByDomain(catalog)
	require.Len(t, groups, 2)

	assert.Equal(t, "chemical", groups[0].Domain)
	assert.Equal(t, 3, groups[0].Papers)
	assert.Equal(t, []SubdomainCount{{Subdomain: "metals", Papers: 2}, {Subdomain: "persistent", Papers: 1}}, groups[0].Subdomains)
	assert.Equal(t, []string{"cadmium", "lead", "mercury", "pfas"}, groups[0].Indicators)

	assert.Equal(t, "NLP", groups[1].Domain)
	assert.Equal(t, 1, groups[1].Papers)
	assert.Empty(t, GroupByDomain(nil))
}
