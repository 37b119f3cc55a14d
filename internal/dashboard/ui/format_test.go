package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMonth(t *testing.T) {
	cases := map[string]string{
		"2025-01": "jan de 2025",
		"2025-03": "mar de 2025",
		"2026-12": "dez de 2026",
		"2025-13": "2025-13",
		"março":   "março",
		"":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMonth(in), in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "11/02/2025", FormatDate("2025-02-11"))
	assert.Equal(t, "11/02/2025", FormatDate("11/02/2025"))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "987", FormatCount(987))
	assert.Equal(t, "12.345", FormatCount(int64(12345)))
}
