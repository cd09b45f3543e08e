package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveProgress(t *testing.T) {
	cases := []struct {
		status   TaskStatus
		expected string
		ok       bool
	}{
		{TaskStatusToDo, "0", true},
		{TaskStatusInProgress, "50", true},
		{TaskStatusQCPending, "75", true},
		{TaskStatusCompleted, "100", true},
		{TaskStatusBlocked, "0", false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			progress, ok := DeriveProgress(tc.status)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, progress.Equal(decimal.RequireFromString(tc.expected)), "got %s", progress)
			}
		})
	}
}

func TestTaskStatusValid(t *testing.T) {
	assert.True(t, TaskStatusBlocked.Valid())
	assert.False(t, TaskStatus("DONE").Valid())
	assert.False(t, TaskStatus("").Valid())
}

func TestSiteStatusFor(t *testing.T) {
	assert.Equal(t, SiteStatusToDo, SiteStatusFor(decimal.Zero))
	assert.Equal(t, SiteStatusInProgress, SiteStatusFor(decimal.RequireFromString("0.01")))
	assert.Equal(t, SiteStatusInProgress, SiteStatusFor(decimal.RequireFromString("99.99")))
	assert.Equal(t, SiteStatusCompleted, SiteStatusFor(decimal.NewFromInt(100)))
}

func TestProjectStatusFor(t *testing.T) {
	assert.Equal(t, ProjectStatusPreparation, ProjectStatusFor(decimal.Zero, ProjectStatusPreparation))
	assert.Equal(t, ProjectStatusInProgress, ProjectStatusFor(decimal.NewFromInt(40), ProjectStatusPreparation))
	assert.Equal(t, ProjectStatusCompleted, ProjectStatusFor(decimal.NewFromInt(100), ProjectStatusInProgress))

	// Invoiced and paid are terminal for the aggregation.
	assert.Equal(t, ProjectStatusInvoiced, ProjectStatusFor(decimal.NewFromInt(10), ProjectStatusInvoiced))
	assert.Equal(t, ProjectStatusPaid, ProjectStatusFor(decimal.Zero, ProjectStatusPaid))
}

func TestMean(t *testing.T) {
	t.Run("empty set is zero", func(t *testing.T) {
		assert.True(t, Mean(nil).IsZero())
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		values := []decimal.Decimal{
			decimal.NewFromInt(50),
			decimal.NewFromInt(50),
			decimal.NewFromInt(100),
		}
		got := Mean(values)
		require.True(t, got.Equal(decimal.RequireFromString("66.67")), "got %s", got)
	})

	t.Run("unweighted", func(t *testing.T) {
		values := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(100)}
		assert.True(t, Mean(values).Equal(decimal.NewFromInt(50)))
	})
}
