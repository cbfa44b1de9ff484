package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"harvest-gateway/pkg/api"

	"github.com/go-resty/resty/v2"
)

// SupabaseStore queries the managed store through its PostgREST API using
// the service-role key.
type SupabaseStore struct {
	client *resty.Client
}

func NewSupabaseStore(baseURL, serviceKey string) *SupabaseStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/rest/v1").
		SetHeader("apikey", serviceKey).
		SetHeader("Authorization", "Bearer "+serviceKey)
	return &SupabaseStore{client: client}
}

// postgrestError is the error body PostgREST returns on failed requests.
type postgrestError struct {
	Message string `json:"message"`
}

func (s *SupabaseStore) QueryPredictions(ctx context.Context, region string, limit int) ([]api.Prediction, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.desc").
		SetQueryParam("limit", strconv.Itoa(limit))
	if region != "" {
		req.SetQueryParam("region", "eq."+region)
	}

	res, err := req.Get("/predictions")
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	if !res.IsSuccess() {
		return nil, storeError(res.Body(), res.StatusCode())
	}

	var predictions []api.Prediction
	if err := json.Unmarshal(res.Body(), &predictions); err != nil {
		return nil, fmt.Errorf("parsing predictions response: %w", err)
	}
	return predictions, nil
}

func (s *SupabaseStore) InsertObservations(ctx context.Context, rows []map[string]any) ([]map[string]any, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(rows).
		Post("/observations")
	if err != nil {
		return nil, fmt.Errorf("inserting observations: %w", err)
	}
	if !res.IsSuccess() {
		return nil, storeError(res.Body(), res.StatusCode())
	}

	var inserted []map[string]any
	if err := json.Unmarshal(res.Body(), &inserted); err != nil {
		return nil, fmt.Errorf("parsing insert response: %w", err)
	}
	return inserted, nil
}

// Ping issues a HEAD-style count query against the observations collection.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1").
		Get("/observations")
	if err != nil {
		return fmt.Errorf("pinging store: %w", err)
	}
	if !res.IsSuccess() {
		return storeError(res.Body(), res.StatusCode())
	}
	return nil
}

func (s *SupabaseStore) Kind() string {
	return KindSupabase
}

func storeError(body []byte, status int) error {
	var perr postgrestError
	if err := json.Unmarshal(body, &perr); err == nil && perr.Message != "" {
		return &Error{Message: perr.Message}
	}
	return &Error{Message: fmt.Sprintf("store returned status %d", status)}
}
