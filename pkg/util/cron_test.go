package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		valid bool
	}{
		{"every_five_minutes", "*/5 * * * *", true},
		{"hourly", "0 * * * *", true},
		{"descriptor", "@every 1m", true},
		{"too_few_fields", "* * *", false},
		{"garbage", "not a cron", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNextCronTime(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC)

	next, err := NextCronTime("*/5 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), next)
}
