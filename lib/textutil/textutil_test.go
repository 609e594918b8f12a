package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripSpace(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "1 234,56", expected: "1234,56"},
		{input: "1 234 567,8", expected: "1234567,8"},
		{input: "12 345", expected: "12345"},
		{input: "3\u00a0276,61", expected: "3276,61"},
		{input: "3\u202f276,61", expected: "3276,61"},
		{input: " \t0,00\n", expected: "0,00"},
		{input: "", expected: ""},
	}
	for _, row := range table {
		require.Equal(t, row.expected, StripSpace(row.input))
	}
}

func TestClosest(t *testing.T) {
	candidates := []string{"IMOEX", "RTSI", "MOEXBC"}

	best, _, ok := Closest("IMOEKS", candidates)
	require.True(t, ok)
	require.Equal(t, "IMOEX", best)

	best, sim, ok := Closest("rtsi", candidates)
	require.True(t, ok)
	require.Equal(t, "RTSI", best)
	require.InDelta(t, 1.0, sim, 1e-9)

	_, _, ok = Closest("IMOEX", nil)
	require.False(t, ok)
}
