package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"harvest-gateway/pkg/api"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PredictionRecord mirrors the managed store's predictions collection.
type PredictionRecord struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Region             string    `gorm:"index;not null"`
	PredictionForDate  string
	RiskLevel          string `gorm:"size:20"`
	FailureProbability float64
	SimilarityPct      float64
	Message            string
	CreatedAt          time.Time `gorm:"index"`
}

func (PredictionRecord) TableName() string { return "predictions" }

// ObservationRecord holds ingested dataset rows. The payload is kept opaque;
// only the region is lifted into a column for filtering.
type ObservationRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Region    string    `gorm:"index"`
	Payload   datatypes.JSON
	CreatedAt time.Time
}

func (ObservationRecord) TableName() string { return "observations" }

// LocalStore is a self-hosted alternative to the managed store, backed by
// sqlite or postgres depending on the DATABASE_URL scheme. Query semantics
// match the Supabase adapter (exact region match, newest first).
type LocalStore struct {
	db *gorm.DB
}

func NewLocalStore(databaseURL string) (*LocalStore, error) {
	db, err := openDatabase(databaseURL)
	if err != nil {
		return nil, err
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("running store migrations: %w", err)
	}

	return &LocalStore{db: db}, nil
}

func NewLocalStoreFromDB(db *gorm.DB) (*LocalStore, error) {
	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("running store migrations: %w", err)
	}
	return &LocalStore{db: db}, nil
}

func openDatabase(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&PredictionRecord{}, &ObservationRecord{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		log.Println("clean database detected, running full schema initialization")

		dbType := db.Dialector.Name()
		if dbType == "sqlite" || dbType == "sqlite3" {
			// Sqlite does not enable foreign key constraints by default.
			if err := txn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				slog.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		return txn.AutoMigrate(&PredictionRecord{}, &ObservationRecord{})
	})

	return migrator
}

func (s *LocalStore) QueryPredictions(ctx context.Context, region string, limit int) ([]api.Prediction, error) {
	query := s.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if region != "" {
		query = query.Where("region = ?", region)
	}

	var records []PredictionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, &Error{Message: err.Error()}
	}

	predictions := make([]api.Prediction, len(records))
	for i, rec := range records {
		predictions[i] = api.Prediction{
			ID:                 rec.ID.String(),
			Region:             rec.Region,
			PredictionForDate:  rec.PredictionForDate,
			RiskLevel:          rec.RiskLevel,
			FailureProbability: rec.FailureProbability,
			SimilarityPct:      rec.SimilarityPct,
			Message:            rec.Message,
			CreatedAt:          rec.CreatedAt,
		}
	}
	return predictions, nil
}

func (s *LocalStore) InsertObservations(ctx context.Context, rows []map[string]any) ([]map[string]any, error) {
	records := make([]ObservationRecord, len(rows))
	for i, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("unserializable row: %v", err)}
		}

		region, _ := row["region"].(string)
		records[i] = ObservationRecord{
			ID:        uuid.New(),
			Region:    region,
			Payload:   payload,
			CreatedAt: time.Now().UTC(),
		}
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, &Error{Message: err.Error()}
	}

	inserted := make([]map[string]any, len(records))
	for i, rec := range records {
		row := make(map[string]any, len(rows[i])+2)
		for k, v := range rows[i] {
			row[k] = v
		}
		row["id"] = rec.ID.String()
		row["created_at"] = rec.CreatedAt
		inserted[i] = row
	}
	return inserted, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *LocalStore) Kind() string {
	return KindLocal
}
