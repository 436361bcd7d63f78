package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"property-harvester-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSinkAdapter дублирует записи прогона в PostgreSQL.
// Повторный Flush безопасен: запись идентифицируется (source, url),
// конфликт превращается в обновление.
type PostgresSinkAdapter struct {
	pool   *pgxpool.Pool
	source domain.ListingSource

	mu      sync.Mutex
	records []*domain.Record
}

// NewPostgresSinkAdapter - конструктор
func NewPostgresSinkAdapter(pool *pgxpool.Pool, source domain.ListingSource) (*PostgresSinkAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresSinkAdapter{pool: pool, source: source}, nil
}

// EnsureSchema создает таблицу результатов, если ее еще нет.
// Вызывается один раз при старте приложения.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS harvested_listings (
			id              BIGSERIAL PRIMARY KEY,
			source          TEXT NOT NULL,
			url             TEXT NOT NULL,
			field_values    JSONB NOT NULL DEFAULT '{}',
			characteristics JSONB NOT NULL DEFAULT '{}',
			latitude        DOUBLE PRECISION,
			longitude       DOUBLE PRECISION,
			harvested_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (source, url)
		)
	`
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres sink: failed to ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresSinkAdapter) Append(record *domain.Record) {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
}

func (s *PostgresSinkAdapter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush выполняет батч upsert-ов одним обращением к базе
func (s *PostgresSinkAdapter) Flush(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	records := make([]*domain.Record, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	query := `
		INSERT INTO harvested_listings (source, url, field_values, characteristics, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, url) DO UPDATE SET
			field_values    = EXCLUDED.field_values,
			characteristics = EXCLUDED.characteristics,
			latitude        = EXCLUDED.latitude,
			longitude       = EXCLUDED.longitude,
			harvested_at    = now()
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		valuesJSON, err := json.Marshal(rec.Values)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: failed to marshal values for %s: %w", rec.URL, err)
		}
		charsJSON, err := json.Marshal(rec.Characteristics)
		if err != nil {
			return nil, fmt.Errorf("postgres sink: failed to marshal characteristics for %s: %w", rec.URL, err)
		}
		batch.Queue(query, s.source.Name, rec.URL, valuesJSON, charsJSON, rec.Latitude, rec.Longitude)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("postgres sink: batch upsert failed: %w", err)
		}
	}

	return []string{"postgres://harvested_listings/" + s.source.Name}, nil
}
