package store_test

import (
	"context"
	"testing"
	"time"

	"harvest-gateway/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createLocalStore(t *testing.T, create ...any) (*store.LocalStore, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	s, err := store.NewLocalStoreFromDB(db)
	require.NoError(t, err)

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return s, db
}

func TestLocalStoreQueryPredictions(t *testing.T) {
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	s, _ := createLocalStore(t,
		&store.PredictionRecord{ID: uuid.New(), Region: "Kabupaten A", RiskLevel: "high", FailureProbability: 0.82, CreatedAt: base},
		&store.PredictionRecord{ID: uuid.New(), Region: "Kabupaten A", RiskLevel: "low", FailureProbability: 0.12, CreatedAt: base.Add(time.Hour)},
		&store.PredictionRecord{ID: uuid.New(), Region: "Kabupaten B", RiskLevel: "medium", FailureProbability: 0.46, CreatedAt: base.Add(2*time.Hour)},
	)

	t.Run("ExactMatchOnly", func(t *testing.T) {
		// The real store filters by equality, not substring.
		matched, err := s.QueryPredictions(context.Background(), "Kabupaten A", store.DefaultLimit)
		require.NoError(t, err)
		assert.Len(t, matched, 2)

		matched, err = s.QueryPredictions(context.Background(), "kabupaten a", store.DefaultLimit)
		require.NoError(t, err)
		assert.Empty(t, matched)

		matched, err = s.QueryPredictions(context.Background(), "Kabupaten", store.DefaultLimit)
		require.NoError(t, err)
		assert.Empty(t, matched)
	})

	t.Run("NewestFirst", func(t *testing.T) {
		all, err := s.QueryPredictions(context.Background(), "", store.DefaultLimit)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Kabupaten B", all[0].Region)
		assert.Equal(t, "low", all[1].RiskLevel)
		assert.Equal(t, "high", all[2].RiskLevel)
	})

	t.Run("Limit", func(t *testing.T) {
		limited, err := s.QueryPredictions(context.Background(), "", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "Kabupaten B", limited[0].Region)
	})
}

func TestLocalStoreInsertObservations(t *testing.T) {
	s, db := createLocalStore(t)

	rows := []map[string]any{
		{"region": "Kabupaten A", "rainfall_mm": 210.5, "month": 11},
		{"region": "Kabupaten B", "rainfall_mm": 95.0, "month": 11},
	}

	inserted, err := s.InsertObservations(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	for i, row := range inserted {
		assert.Equal(t, rows[i]["region"], row["region"])
		assert.NotEmpty(t, row["id"])
		assert.NotEmpty(t, row["created_at"])
	}

	var count int64
	require.NoError(t, db.Model(&store.ObservationRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var record store.ObservationRecord
	require.NoError(t, db.Where("region = ?", "Kabupaten A").First(&record).Error)
	assert.JSONEq(t, `{"region":"Kabupaten A","rainfall_mm":210.5,"month":11}`, string(record.Payload))
}

func TestLocalStorePing(t *testing.T) {
	s, _ := createLocalStore(t)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, store.KindLocal, s.Kind())
}
