package api

import (
	"encoding/json"
	"time"
)

// PredictRequest is the client-facing prediction request. PlantingMonth and
// UseCSV are pointers so that an omitted field can be told apart from an
// explicit zero value.
type PredictRequest struct {
	Region        string `json:"region"`
	Month         string `json:"month,omitempty"`
	PlantingMonth *int   `json:"planting_month,omitempty"`
	UseCSV        *bool  `json:"use_csv,omitempty"`
}

// PredictPayload is the normalized payload forwarded to the ML service.
type PredictPayload struct {
	Region        string `json:"region"`
	UseCSV        bool   `json:"use_csv"`
	PlantingMonth *int   `json:"planting_month,omitempty"`
}

type BatchPredictRequest struct {
	Regions []string `json:"regions"`
	UseCSV  *bool    `json:"use_csv,omitempty"`
}

// Prediction is a stored prediction row as served to clients.
type Prediction struct {
	ID                 string    `json:"id"`
	Region             string    `json:"region"`
	PredictionForDate  string    `json:"prediction_for_date"`
	RiskLevel          string    `json:"risk_level"`
	FailureProbability float64   `json:"failure_probability"`
	SimilarityPct      float64   `json:"similarity_pct"`
	Message            string    `json:"message"`
	CreatedAt          time.Time `json:"created_at"`
}

type PredictionsResponse struct {
	Count  int          `json:"count"`
	Data   []Prediction `json:"data"`
	Source string       `json:"source,omitempty"`
}

type DatasetInsertResponse struct {
	Inserted int              `json:"inserted"`
	Data     []map[string]any `json:"data"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminUser struct {
	Sub      string `json:"sub"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

type AdminLoginResponse struct {
	Token string    `json:"token"`
	User  AdminUser `json:"user"`
}

type OAuthCallbackResponse struct {
	Provider string          `json:"provider"`
	Tokens   json.RawMessage `json:"tokens"`
	Profile  json.RawMessage `json:"profile"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Supabase string `json:"supabase,omitempty"`
}
