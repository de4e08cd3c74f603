package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadscan/threadscan/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("Test database not configured")
	}
	db, err := New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestSaveAndListScanResults(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	scanID := uuid.New().String()

	products := []models.Product{
		{
			Site:         "allbirds",
			Name:         "Wool Runner",
			Price:        "$110",
			URL:          "https://www.allbirds.com/products/wool-runner",
			Sizes:        []string{"8", "9", "10"},
			Availability: models.AvailabilityInStock,
			Description:  "A comfortable everyday sneaker.",
		},
		{
			Site: "everlane",
			Name: "Organic Cotton Tee",
			URL:  "https://www.everlane.com/products/cotton-tee",
		},
	}

	require.NoError(t, db.SaveScanResults(ctx, scanID, products))

	got, err := db.ListScanResults(ctx, scanID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Wool Runner", got[0].Name)
	assert.Equal(t, []string{"8", "9", "10"}, got[0].Sizes)
	assert.Equal(t, models.AvailabilityInStock, got[0].Availability)
	assert.Empty(t, got[1].Sizes)
}

func TestSaveScanResultsEmpty(t *testing.T) {
	db := setupTestDB(t)

	err := db.SaveScanResults(context.Background(), uuid.New().String(), nil)
	assert.NoError(t, err)
}

func TestListScanResultsUnknownScan(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.ListScanResults(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, got)
}
