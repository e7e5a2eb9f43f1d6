package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterFromValues(t *testing.T) {
	values := url.Values{
		"category":       {"/gates/hardware/"},
		"vendor":         {" Fabrow "},
		"tag":            {"galvanised, heavy-duty", "outdoor"},
		"q":              {"hinge"},
		"minPrice":       {"$10"},
		"maxPrice":       {"1,200.50"},
		"inStock":        {"true"},
		"option.Finish":  {"Black"},
		"option.":        {"ignored"},
		"option.Size":    {"  "},
		"unrelated":      {"x"},
	}

	f, err := FilterFromValues(values)
	require.NoError(t, err)
	assert.Equal(t, "gates/hardware", f.CategoryPath)
	assert.Equal(t, "Fabrow", f.Vendor)
	assert.Equal(t, []string{"galvanised", "heavy-duty", "outdoor"}, f.Tags)
	assert.Equal(t, "hinge", f.Query)
	assert.Equal(t, int64(1000), f.MinPriceCents)
	assert.Equal(t, int64(120050), f.MaxPriceCents)
	assert.True(t, f.InStockOnly)
	assert.Equal(t, map[string]string{"Finish": "Black"}, f.Options)
	assert.False(t, f.IncludeHidden)
}

func TestFilterFromValuesRejectsBadInput(t *testing.T) {
	for _, values := range []url.Values{
		{"minPrice": {"cheap"}},
		{"maxPrice": {"-4"}},
		{"inStock": {"maybe"}},
	} {
		_, err := FilterFromValues(values)
		assert.Error(t, err, "values %v", values)
	}

	f, err := FilterFromValues(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, f.Options)
	assert.Empty(t, f.Tags)
}
