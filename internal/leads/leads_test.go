package leads_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/leads"
	"vitrine/internal/testsupport"
	"vitrine/internal/timeframe"
)

func TestCountInRange(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	for _, at := range []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 2, 23, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, db.Create(&leads.Lead{Name: "Ana", Email: "ana@example.com", CreatedAt: at}).Error)
	}

	r, err := timeframe.NewRange(
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		time.UTC)
	require.NoError(t, err)

	count, err := leads.CountInRange(context.Background(), db, r)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
