package store_test

import (
	"context"
	"testing"

	"harvest-gateway/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStoreFilter(t *testing.T) {
	s := store.NewMockStore()

	all, err := s.QueryPredictions(context.Background(), "", store.DefaultLimit)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// substring match is case-insensitive
	matched, err := s.QueryPredictions(context.Background(), "kabupaten b", store.DefaultLimit)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Kabupaten B", matched[0].Region)

	matched, err = s.QueryPredictions(context.Background(), "KABUPATEN", store.DefaultLimit)
	require.NoError(t, err)
	assert.Len(t, matched, 3)

	none, err := s.QueryPredictions(context.Background(), "Kota X", store.DefaultLimit)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMockStoreLimit(t *testing.T) {
	s := store.NewMockStore()

	limited, err := s.QueryPredictions(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMockStoreInsertRejected(t *testing.T) {
	s := store.NewMockStore()

	_, err := s.InsertObservations(context.Background(), []map[string]any{{"region": "Kabupaten A"}})
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", store.DefaultLimit},
		{"abc", store.DefaultLimit},
		{"-5", store.DefaultLimit},
		{"0", store.DefaultLimit},
		{"1", 1},
		{"250", 250},
		{"500", 500},
		{"1000", store.MaxLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, store.ClampLimit(tt.raw), "limit=%q", tt.raw)
	}
}
