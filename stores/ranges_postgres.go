package stores

import (
	"context"
	"net/netip"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/errors"
)

const (
	postgresCreateTable = `
CREATE TABLE IF NOT EXISTS learned_ip_ranges (
    cidr               cidr PRIMARY KEY,
    learned_city       text NOT NULL,
    learned_state      text NOT NULL DEFAULT '',
    sample_count       integer NOT NULL,
    success_rate       double precision NOT NULL,
    average_confidence double precision NOT NULL,
    primary_isp        text NOT NULL DEFAULT '',
    primary_asn        text NOT NULL DEFAULT '',
    first_seen         timestamptz NOT NULL,
    last_seen          timestamptz NOT NULL,
    is_active          boolean NOT NULL
)`

	postgresCreateIndex = `
CREATE INDEX IF NOT EXISTS learned_ip_ranges_cidr_gist
    ON learned_ip_ranges USING gist (cidr inet_ops)`

	postgresColumns = `cidr, learned_city, learned_state, sample_count,
success_rate, average_confidence, primary_isp, primary_asn, first_seen,
last_seen, is_active`

	postgresFindContaining = `SELECT ` + postgresColumns + `
FROM learned_ip_ranges
WHERE cidr >>= $1::inet
ORDER BY masklen(cidr) DESC`

	postgresListActive = `SELECT ` + postgresColumns + `
FROM learned_ip_ranges
WHERE is_active
ORDER BY cidr`

	// row lock does not help if there is no row yet
	postgresLockPrefix = `SELECT pg_advisory_xact_lock(hashtext($1))`

	postgresSelectForUpdate = `SELECT ` + postgresColumns + `
FROM learned_ip_ranges
WHERE cidr = $1
FOR UPDATE`

	postgresUpsert = `
INSERT INTO learned_ip_ranges (
    cidr, learned_city, learned_state, sample_count, success_rate,
    average_confidence, primary_isp, primary_asn, first_seen, last_seen,
    is_active
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (cidr) DO UPDATE SET
    learned_city = EXCLUDED.learned_city,
    learned_state = EXCLUDED.learned_state,
    sample_count = EXCLUDED.sample_count,
    success_rate = EXCLUDED.success_rate,
    average_confidence = EXCLUDED.average_confidence,
    primary_isp = EXCLUDED.primary_isp,
    primary_asn = EXCLUDED.primary_asn,
    first_seen = EXCLUDED.first_seen,
    last_seen = EXCLUDED.last_seen,
    is_active = EXCLUDED.is_active`
)

// PostgresPool is a subset of pgxpool.Pool which is used by
// PostgresRangeStore.
type PostgresPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresRangeStore keeps learned ranges in PostgreSQL. Ranges are
// stored in a cidr column with GiST index, so containment lookups are
// done by the database.
type PostgresRangeStore struct {
	pool PostgresPool
}

func (p *PostgresRangeStore) FindContaining(ctx context.Context, addr netip.Addr) ([]wherelib.LearnedIPRange, error) {
	rows, err := p.pool.Query(ctx, postgresFindContaining, addr.Unmap())
	if err != nil {
		return nil, errors.Annotate(err, "cannot query ranges")
	}

	return collectPostgresRanges(rows)
}

func (p *PostgresRangeStore) Upsert(ctx context.Context, prefix netip.Prefix, fn wherelib.UpsertFunc) error {
	prefix = prefix.Masked()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.Annotate(err, "cannot start a transaction")
	}

	defer tx.Rollback(context.WithoutCancel(ctx)) // nolint: errcheck

	if _, err := tx.Exec(ctx, postgresLockPrefix, prefix.String()); err != nil {
		return errors.Annotatef(err, "cannot lock %s", prefix)
	}

	rows, err := tx.Query(ctx, postgresSelectForUpdate, prefix)
	if err != nil {
		return errors.Annotate(err, "cannot query a range")
	}

	found, err := collectPostgresRanges(rows)
	if err != nil {
		return err
	}

	var current *wherelib.LearnedIPRange

	if len(found) > 0 {
		current = &found[0]
	}

	value, err := fn(current)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, postgresUpsert,
		prefix,
		value.LearnedCity,
		value.LearnedState,
		value.SampleCount,
		value.SuccessRate,
		value.AverageConfidence,
		value.PrimaryISP,
		value.PrimaryASN,
		value.FirstSeen,
		value.LastSeen,
		value.IsActive)
	if err != nil {
		return errors.Annotatef(err, "cannot store %s", prefix)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Annotate(err, "cannot commit a transaction")
	}

	return nil
}

func (p *PostgresRangeStore) ListActive(ctx context.Context) ([]wherelib.LearnedIPRange, error) {
	rows, err := p.pool.Query(ctx, postgresListActive)
	if err != nil {
		return nil, errors.Annotate(err, "cannot query ranges")
	}

	return collectPostgresRanges(rows)
}

func (p *PostgresRangeStore) Close() {
	p.pool.Close()
}

func (p *PostgresRangeStore) migrate(ctx context.Context) error {
	for _, query := range []string{postgresCreateTable, postgresCreateIndex} {
		if _, err := p.pool.Exec(ctx, query); err != nil {
			return errors.Annotate(err, "cannot create a schema")
		}
	}

	return nil
}

func collectPostgresRanges(rows pgx.Rows) ([]wherelib.LearnedIPRange, error) {
	rv, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (wherelib.LearnedIPRange, error) {
		value := wherelib.LearnedIPRange{}

		err := row.Scan(&value.CIDR,
			&value.LearnedCity,
			&value.LearnedState,
			&value.SampleCount,
			&value.SuccessRate,
			&value.AverageConfidence,
			&value.PrimaryISP,
			&value.PrimaryASN,
			&value.FirstSeen,
			&value.LastSeen,
			&value.IsActive)

		return value, err
	})
	if err != nil {
		return nil, errors.Annotate(err, "cannot read rows")
	}

	return rv, nil
}

// NewPostgresRangeStore connects to PostgreSQL by DSN and creates a
// schema if necessary.
func NewPostgresRangeStore(ctx context.Context, dsn string) (*PostgresRangeStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Annotate(err, "cannot connect to postgres")
	}

	store, err := NewPostgresRangeStoreFromPool(ctx, pool)
	if err != nil {
		pool.Close()

		return nil, err
	}

	return store, nil
}

// NewPostgresRangeStoreFromPool uses an existing pool.
func NewPostgresRangeStoreFromPool(ctx context.Context, pool PostgresPool) (*PostgresRangeStore, error) {
	store := &PostgresRangeStore{pool: pool}

	if err := store.migrate(ctx); err != nil {
		return nil, err
	}

	return store, nil
}
