package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2024-03-05T09:30:00", FormatTimestamp("2024-03-05 09:30:00"))
	assert.Equal(t, "2024-03-05T09:30:00", FormatTimestamp("2024-03-05T09:30:00Z"))
	assert.Equal(t, "2024-03-05T09:30:00", FormatTimestamp("2024-03-05T09:30:00.123456789Z"))

	// unparseable values pass through unchanged
	assert.Equal(t, "", FormatTimestamp(""))
	assert.Equal(t, "yesterday", FormatTimestamp("yesterday"))
}

func TestNowDBLayout(t *testing.T) {
	now := NowDB()
	parsed, err := time.Parse(DBTimeLayout, now)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 2*time.Second)
}
