package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"harvest-gateway/internal/auth"
	"harvest-gateway/internal/mlclient"
	"harvest-gateway/internal/oauth"
	"harvest-gateway/internal/store"
	"harvest-gateway/pkg/api"

	"github.com/go-chi/chi/v5"
)

// GatewayService mediates between the web client and the external ML
// service, the data store, and the OAuth provider. It is stateless per
// request; all dependencies are injected at startup.
type GatewayService struct {
	ml       *mlclient.Client
	store    store.Store
	tokens   *auth.TokenManager
	google   *oauth.GoogleClient
	adminKey string
}

func NewGatewayService(ml *mlclient.Client, st store.Store, tokens *auth.TokenManager, google *oauth.GoogleClient, adminKey string) *GatewayService {
	return &GatewayService{ml: ml, store: st, tokens: tokens, google: google, adminKey: adminKey}
}

func (s *GatewayService) AddRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", RestHandler(s.Health))
		r.Route("/ml", func(r chi.Router) {
			r.Get("/regions", RestHandler(s.Regions))
			r.Post("/predict", RestHandler(s.Predict))
			r.Post("/predict/batch", RestHandler(s.PredictBatch))
		})
		r.Get("/predictions", RestHandler(s.QueryPredictions))
		r.Route("/admin", func(r chi.Router) {
			r.With(auth.RequireAdminKey(s.adminKey)).Post("/datasets", RestHandler(s.InsertDatasets))
			r.With(auth.RequireAdminKey(s.adminKey)).Post("/login", RestHandler(s.AdminKeyLogin))
			r.With(auth.RequireToken(s.tokens)).Get("/me", RestHandler(s.AdminProfile))
		})
		r.Post("/auth/admin/login", RestHandler(s.AdminLogin))
	})
	r.Get("/auth/google", s.GoogleLogin)
	r.Get("/auth/google/callback", RestHandler(s.GoogleCallback))
}

// buildPredictPayload normalizes a client request into the payload forwarded
// upstream. An explicit planting_month wins and is forwarded verbatim; a
// month of the form YYYY-MM contributes its month component only when it
// parses to a value in [1,12]. Anything else leaves planting_month unset
// without erroring. use_csv defaults to true.
func buildPredictPayload(req api.PredictRequest) api.PredictPayload {
	payload := api.PredictPayload{Region: req.Region, UseCSV: true}
	if req.UseCSV != nil {
		payload.UseCSV = *req.UseCSV
	}

	if req.PlantingMonth != nil {
		payload.PlantingMonth = req.PlantingMonth
	} else if req.Month != "" {
		if month, ok := parseMonth(req.Month); ok {
			payload.PlantingMonth = &month
		}
	}
	return payload
}

func parseMonth(value string) (int, bool) {
	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return 0, false
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return month, true
}

func (s *GatewayService) Predict(r *http.Request) (any, error) {
	req, err := ParseRequest[api.PredictRequest](r)
	if err != nil {
		return nil, err
	}

	if req.Region == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "region_required")
	}

	upstream, err := s.ml.Predict(r.Context(), buildPredictPayload(req))
	if err != nil {
		slog.Error("error proxying predict request to ml service", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}
	return relay(upstream)
}

func (s *GatewayService) PredictBatch(r *http.Request) (any, error) {
	req, err := ParseRequest[api.BatchPredictRequest](r)
	if err != nil {
		return nil, err
	}

	if len(req.Regions) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "regions_required")
	}

	useCSV := true
	if req.UseCSV != nil {
		useCSV = *req.UseCSV
	}

	upstream, err := s.ml.PredictBatch(r.Context(), req.Regions, useCSV)
	if err != nil {
		slog.Error("error proxying batch predict request to ml service", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}
	return relay(upstream)
}

func (s *GatewayService) Regions(r *http.Request) (any, error) {
	upstream, err := s.ml.Regions(r.Context())
	if err != nil {
		slog.Error("error fetching regions from ml service", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}
	return relay(upstream)
}

// relay passes a 2xx upstream body through verbatim and wraps anything else
// in the ml_service_error envelope, keeping the upstream status.
func relay(upstream *mlclient.Upstream) (any, error) {
	if !upstream.Success() {
		var detail any
		if err := json.Unmarshal(upstream.Body, &detail); err != nil {
			detail = map[string]any{}
		}
		return nil, ErrorWithDetail(upstream.Status, "ml_service_error", detail)
	}
	return &Response{Status: http.StatusOK, Body: json.RawMessage(upstream.Body)}, nil
}

type predictionsQuery struct {
	Region string `schema:"region"`
	Limit  string `schema:"limit"`
}

func (s *GatewayService) QueryPredictions(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[predictionsQuery](r)
	if err != nil {
		return nil, err
	}

	limit := store.ClampLimit(params.Limit)
	predictions, err := s.store.QueryPredictions(r.Context(), params.Region, limit)
	if err != nil {
		var serr *store.Error
		if errors.As(err, &serr) {
			return nil, CodedErrorf(http.StatusBadRequest, "%s", serr.Message)
		}
		slog.Error("error querying predictions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}

	if predictions == nil {
		predictions = []api.Prediction{}
	}

	resp := api.PredictionsResponse{Count: len(predictions), Data: predictions}
	if s.store.Kind() == store.KindMock {
		resp.Source = store.KindMock
	}
	return resp, nil
}

func (s *GatewayService) InsertDatasets(r *http.Request) (any, error) {
	if s.store.Kind() == store.KindMock {
		return nil, CodedErrorf(http.StatusInternalServerError, "supabase_not_configured")
	}

	raw, err := ParseRequest[json.RawMessage](r)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		var single map[string]any
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid_request_body")
		}
		rows = []map[string]any{single}
	}

	if len(rows) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "empty_payload")
	}

	inserted, err := s.store.InsertObservations(r.Context(), rows)
	if err != nil {
		var serr *store.Error
		if errors.As(err, &serr) {
			return nil, CodedErrorf(http.StatusBadRequest, "%s", serr.Message)
		}
		slog.Error("error inserting observations", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}

	return &Response{
		Status: http.StatusCreated,
		Body:   api.DatasetInsertResponse{Inserted: len(inserted), Data: inserted},
	}, nil
}

func (s *GatewayService) AdminLogin(r *http.Request) (any, error) {
	req, err := ParseRequest[api.AdminLoginRequest](r)
	if err != nil {
		return nil, err
	}

	if s.adminKey == "" {
		return nil, CodedErrorf(http.StatusInternalServerError, "admin_api_key_not_configured")
	}

	if req.Password == "" || req.Password != s.adminKey {
		return nil, CodedErrorf(http.StatusUnauthorized, "invalid_credentials")
	}

	username := req.Username
	if username == "" {
		username = "admin"
	}

	token, err := s.tokens.Mint(username)
	if err != nil {
		slog.Error("error minting admin token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "server_error")
	}

	return api.AdminLoginResponse{
		Token: token,
		User:  api.AdminUser{Sub: "admin", Role: auth.AdminRole, Username: username},
	}, nil
}

// AdminKeyLogin is the legacy header-based check; the middleware has already
// validated x-admin-key by the time this runs.
func (s *GatewayService) AdminKeyLogin(r *http.Request) (any, error) {
	return map[string]string{"status": "ok"}, nil
}

func (s *GatewayService) AdminProfile(r *http.Request) (any, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, CodedErrorf(http.StatusUnauthorized, "unauthorized")
	}
	return api.AdminUser{Sub: claims.Subject, Role: claims.Role, Username: claims.Username}, nil
}

func (s *GatewayService) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.google.Configured() {
		WriteJsonError(w, http.StatusInternalServerError, "google_oauth_not_configured")
		return
	}
	http.Redirect(w, r, s.google.AuthURL(), http.StatusFound)
}

func (s *GatewayService) GoogleCallback(r *http.Request) (any, error) {
	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		return nil, CodedErrorf(http.StatusBadRequest, "%s", oauthErr)
	}

	code := query.Get("code")
	if code == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing_code")
	}

	if !s.google.Configured() {
		return nil, CodedErrorf(http.StatusInternalServerError, "google_oauth_not_configured")
	}

	tokens, err := s.google.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("google oauth code exchange failed", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "google_oauth_failed")
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(tokens, &tokenResponse); err != nil || tokenResponse.AccessToken == "" {
		return nil, ErrorWithDetail(http.StatusInternalServerError, "missing_access_token", json.RawMessage(tokens))
	}

	profile, err := s.google.UserInfo(r.Context(), tokenResponse.AccessToken)
	if err != nil {
		slog.Error("google oauth userinfo fetch failed", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "google_oauth_failed")
	}

	return api.OAuthCallbackResponse{Provider: "google", Tokens: tokens, Profile: profile}, nil
}

func (s *GatewayService) Health(r *http.Request) (any, error) {
	resp := api.HealthResponse{Status: "ok"}

	if s.store.Kind() == store.KindMock {
		resp.Supabase = "not_configured"
		return resp, nil
	}

	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("store health check failed", "error", err)
		resp.Supabase = "error"
	} else {
		resp.Supabase = "ok"
	}
	return resp, nil
}
