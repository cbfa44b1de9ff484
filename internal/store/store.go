// Package store is the persistence boundary for prediction and observation
// rows. The backend is chosen once at startup: Supabase when its credentials
// are configured, a local database when DATABASE_URL is set, and a fixed
// mock dataset otherwise.
package store

import (
	"context"
	"strconv"

	"harvest-gateway/pkg/api"
)

const (
	KindMock     = "mock"
	KindSupabase = "supabase"
	KindLocal    = "local"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Store abstracts the prediction/observation collections.
//
// Note: the mock backend filters region by case-insensitive substring while
// the real backends filter by exact equality. The two paths evolved
// independently and existing clients rely on both behaviors, so the
// divergence is intentional here.
type Store interface {
	QueryPredictions(ctx context.Context, region string, limit int) ([]api.Prediction, error)

	InsertObservations(ctx context.Context, rows []map[string]any) ([]map[string]any, error)

	Ping(ctx context.Context) error

	Kind() string
}

// Error is a backend-reported failure (constraint violation, bad column,
// ...). It maps to a 400 at the handler boundary; transport failures stay
// plain errors and map to 500.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ClampLimit parses a raw limit parameter, falling back to the default on
// anything non-numeric or non-positive and capping at MaxLimit.
func ClampLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
