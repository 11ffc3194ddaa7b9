package forecaststore

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	forecaster "github.com/neurolytix/go-forecaster"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS forecasts (
	dataset_id TEXT NOT NULL,
	method     TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (dataset_id, method)
)`

	upsertSQL = `INSERT INTO forecasts (dataset_id, method, body, created_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (dataset_id, method) DO UPDATE SET body = EXCLUDED.body, created_at = EXCLUDED.created_at`

	selectSQL = `SELECT body FROM forecasts WHERE dataset_id = $1 AND method = $2`

	listSQL = `SELECT coalesce(array_agg(method ORDER BY method), '{}') FROM forecasts WHERE dataset_id = $1`
)

// querier is the part of a pgx pool the store needs
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps forecasts as JSON documents in a forecasts table
type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and creates the forecasts table if needed
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres dsn, %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres, %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres, %w", err)
	}

	s := &PostgresStore{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("unable to create forecasts table, %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Save(ctx context.Context, datasetID string, fc *forecaster.Forecast) error {
	if err := checkSave(datasetID, fc); err != nil {
		return err
	}
	body, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("unable to encode forecast, %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertSQL, datasetID, fc.Method.String(), body); err != nil {
		return fmt.Errorf("unable to store forecast, %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, datasetID string, method forecaster.Method) (*forecaster.Forecast, error) {
	var body []byte
	err := s.db.QueryRow(ctx, selectSQL, datasetID, method.String()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s forecast of %q, %w", method, datasetID, ErrForecastNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load forecast, %w", err)
	}
	var fc forecaster.Forecast
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("unable to decode forecast, %w", err)
	}
	return &fc, nil
}

func (s *PostgresStore) List(ctx context.Context, datasetID string) ([]forecaster.Method, error) {
	var names []string
	if err := s.db.QueryRow(ctx, listSQL, datasetID).Scan(&names); err != nil {
		return nil, fmt.Errorf("unable to list forecasts, %w", err)
	}
	return parseMethods(names), nil
}
