// ABOUTME: Tests for day and month argument parsing.
// ABOUTME: Relative names resolve against a fixed today.
package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	today := mustDate(t, "2025-03-10")

	for in, want := range map[string]string{
		"":           "2025-03-10",
		"today":      "2025-03-10",
		"Yesterday":  "2025-03-09",
		"2025-01-31": "2025-01-31",
	} {
		got, err := ParseDay(in, today)
		require.NoError(t, err, in)
		assert.Equal(t, mustDate(t, want), got, in)
	}

	for _, bad := range []string{"tomorrow", "2025-02-30", "03/10/2025"} {
		_, err := ParseDay(bad, today)
		assert.Error(t, err, bad)
	}
}

func TestParseMonth(t *testing.T) {
	today := mustDate(t, "2025-03-10")

	got, err := ParseMonth("", today)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2025-03-01"), got)

	got, err = ParseMonth("2024-11", today)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2024-11-01"), got)

	_, err = ParseMonth("2024-13", today)
	assert.Error(t, err)
}
