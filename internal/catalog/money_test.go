package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceCents(t *testing.T) {
	cases := map[string]int64{
		"12.50":    1250,
		"$12":      1200,
		"A$12":     1200,
		"AUD 45.5": 4550,
		"1,299.95": 129995,
		"":         0,
		"0.999":    100,
	}
	for input, want := range cases {
		got, err := ParsePriceCents(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, bad := range []string{"abc", "-1", "12..5"} {
		_, err := ParsePriceCents(bad)
		assert.ErrorIs(t, err, ErrInvalidPrice, bad)
	}
}

func TestParseWeightGrams(t *testing.T) {
	grams, err := ParseWeightGrams("1.5", "kg")
	require.NoError(t, err)
	assert.Equal(t, 1500, grams)

	grams, err = ParseWeightGrams("2", "lb")
	require.NoError(t, err)
	assert.Equal(t, 907, grams)

	grams, err = ParseWeightGrams("16", "OZ")
	require.NoError(t, err)
	assert.Equal(t, 454, grams)

	_, err = ParseWeightGrams("1", "stone")
	assert.ErrorIs(t, err, ErrInvalidWeight)
	_, err = ParseWeightGrams("heavy", "g")
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestIncludedTax(t *testing.T) {
	assert.EqualValues(t, 1000, IncludedTax(11000, 0.10))
	assert.EqualValues(t, 182, IncludedTax(1999, 0.10))
	assert.EqualValues(t, 0, IncludedTax(1999, 0))
}

func TestFormatMoney(t *testing.T) {
	assert.Contains(t, FormatMoney(1250, "AUD"), "12.50")
	assert.Equal(t, "XYZ1 12.50", FormatMoney(1250, "XYZ1"))
	assert.Equal(t, "12.50", CentsString(1250))
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Heavy-Duty Gâte  Hinge!": "heavy-duty-gate-hinge",
		"  --Flat Bar 25x3":       "flat-bar-25x3",
		"Ørsted":                  "rsted",
		"":                        "",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input), input)
	}
}
