package store

import (
	"context"
	"strings"
	"time"

	"harvest-gateway/pkg/api"
)

// MockStore serves a fixed three-row dataset so the predictions endpoint
// stays usable in deployments without a configured data store.
type MockStore struct {
	data []api.Prediction
}

func NewMockStore() *MockStore {
	now := time.Now().UTC()
	return &MockStore{data: []api.Prediction{
		{
			ID:                 "mock-1",
			Region:             "Kabupaten A",
			PredictionForDate:  "2025-11-28",
			RiskLevel:          "high",
			FailureProbability: 0.82,
			SimilarityPct:      85,
			Message:            "Perhatian, pola cuaca mirip kejadian gagal panen tahun lalu.",
			CreatedAt:          now,
		},
		{
			ID:                 "mock-2",
			Region:             "Kabupaten B",
			PredictionForDate:  "2025-11-27",
			RiskLevel:          "medium",
			FailureProbability: 0.46,
			SimilarityPct:      58,
			Message:            "Risiko sedang, pantau irigasi dan kelembapan tanah.",
			CreatedAt:          now,
		},
		{
			ID:                 "mock-3",
			Region:             "Kabupaten C",
			PredictionForDate:  "2025-11-26",
			RiskLevel:          "low",
			FailureProbability: 0.18,
			SimilarityPct:      22,
			Message:            "Risiko rendah, kondisi relatif aman.",
			CreatedAt:          now,
		},
	}}
}

// QueryPredictions filters by case-insensitive substring, unlike the real
// backends (see the Store doc comment).
func (s *MockStore) QueryPredictions(ctx context.Context, region string, limit int) ([]api.Prediction, error) {
	filtered := make([]api.Prediction, 0, len(s.data))
	needle := strings.ToLower(region)
	for _, p := range s.data {
		if region == "" || strings.Contains(strings.ToLower(p.Region), needle) {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (s *MockStore) InsertObservations(ctx context.Context, rows []map[string]any) ([]map[string]any, error) {
	return nil, &Error{Message: "store not configured"}
}

func (s *MockStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MockStore) Kind() string {
	return KindMock
}
