package forecaststore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	forecaster "github.com/neurolytix/go-forecaster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

// fakeDB stores upserted bodies in memory and answers the store's queries
type fakeDB struct {
	bodies map[string][]byte
	execs  []string
	err    error
}

func newFakeDB() *fakeDB {
	return &fakeDB{bodies: make(map[string][]byte)}
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}
	if sql == upsertSQL {
		db.bodies[args[0].(string)+"|"+args[1].(string)] = args[2].([]byte)
	}
	return pgconn.CommandTag{}, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch sql {
	case selectSQL:
		body, ok := db.bodies[args[0].(string)+"|"+args[1].(string)]
		return fakeRow{scan: func(dest ...any) error {
			if !ok {
				return pgx.ErrNoRows
			}
			*dest[0].(*[]byte) = body
			return nil
		}}
	case listSQL:
		var names []string
		for k := range db.bodies {
			id, method, _ := strings.Cut(k, "|")
			if id == args[0].(string) {
				names = append(names, method)
			}
		}
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*[]string) = names
			return nil
		}}
	}
	return fakeRow{scan: func(dest ...any) error { return errors.New("unexpected query") }}
}

func TestPostgresStore(t *testing.T) {
	db := newFakeDB()
	store := &PostgresStore{db: db}
	ctx := context.Background()

	require.Nil(t, store.Migrate(ctx))
	assert.Equal(t, []string{createTableSQL}, db.execs)

	_, err := store.Load(ctx, "sales", forecaster.Hybrid)
	assert.ErrorIs(t, err, ErrForecastNotFound)

	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Hybrid, 1)))
	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Hybrid, 7)))
	require.Nil(t, store.Save(ctx, "sales", sampleForecast(forecaster.Ensemble, 2)))

	fc, err := store.Load(ctx, "sales", forecaster.Hybrid)
	require.Nil(t, err)
	assert.Equal(t, sampleForecast(forecaster.Hybrid, 7), fc)

	methods, err := store.List(ctx, "sales")
	require.Nil(t, err)
	assert.Equal(t, []forecaster.Method{forecaster.Hybrid, forecaster.Ensemble}, methods)

	methods, err = store.List(ctx, "web")
	require.Nil(t, err)
	assert.Empty(t, methods)
}

func TestPostgresStoreExecError(t *testing.T) {
	db := newFakeDB()
	db.err = errors.New("connection reset")
	store := &PostgresStore{db: db}

	err := store.Save(context.Background(), "sales", sampleForecast(forecaster.Hybrid, 1))
	assert.ErrorIs(t, err, db.err)
	assert.ErrorIs(t, store.Migrate(context.Background()), db.err)
}
