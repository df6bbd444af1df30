package stores

import (
	"context"
	"database/sql"
	"net/netip"
	"strings"
	"time"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"

	_ "modernc.org/sqlite" // sqlite driver
)

const (
	sqliteDSNOptions = "_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	sqliteSchema = `
CREATE TABLE IF NOT EXISTS learned_ip_ranges (
    cidr               TEXT PRIMARY KEY,
    family             INTEGER NOT NULL,
    range_start        BLOB NOT NULL,
    range_end          BLOB NOT NULL,
    learned_city       TEXT NOT NULL,
    learned_state      TEXT NOT NULL DEFAULT '',
    sample_count       INTEGER NOT NULL,
    success_rate       REAL NOT NULL,
    average_confidence REAL NOT NULL,
    primary_isp        TEXT NOT NULL DEFAULT '',
    primary_asn        TEXT NOT NULL DEFAULT '',
    first_seen         INTEGER NOT NULL,
    last_seen          INTEGER NOT NULL,
    is_active          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS learned_ip_ranges_bounds
    ON learned_ip_ranges (family, range_start, range_end);`

	sqliteColumns = `cidr, learned_city, learned_state, sample_count,
success_rate, average_confidence, primary_isp, primary_asn, first_seen,
last_seen, is_active`

	sqliteUpsert = `
INSERT INTO learned_ip_ranges (
    cidr, family, range_start, range_end, learned_city, learned_state,
    sample_count, success_rate, average_confidence, primary_isp,
    primary_asn, first_seen, last_seen, is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cidr) DO UPDATE SET
    learned_city = excluded.learned_city,
    learned_state = excluded.learned_state,
    sample_count = excluded.sample_count,
    success_rate = excluded.success_rate,
    average_confidence = excluded.average_confidence,
    primary_isp = excluded.primary_isp,
    primary_asn = excluded.primary_asn,
    first_seen = excluded.first_seen,
    last_seen = excluded.last_seen,
    is_active = excluded.is_active`
)

// SQLiteRangeStore keeps learned ranges in SQLite database. Upserts
// are executed in immediate transactions, so a write lock is taken
// before a current value is read.
type SQLiteRangeStore struct {
	db *sql.DB
}

func (s *SQLiteRangeStore) FindContaining(ctx context.Context, addr netip.Addr) ([]wherelib.LearnedIPRange, error) {
	addr = addr.Unmap()
	raw := addr.As16()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM learned_ip_ranges"+
			" WHERE family = ? AND range_start <= ? AND range_end >= ?",
		addr.BitLen(), raw[:], raw[:])
	if err != nil {
		return nil, errors.Annotate(err, "cannot query ranges")
	}

	return s.collect(rows)
}

func (s *SQLiteRangeStore) Upsert(ctx context.Context, prefix netip.Prefix, fn wherelib.UpsertFunc) error {
	prefix = prefix.Masked()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "cannot start a transaction")
	}

	defer tx.Rollback() // nolint: errcheck

	rows, err := tx.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM learned_ip_ranges WHERE cidr = ?",
		prefix.String())
	if err != nil {
		return errors.Annotate(err, "cannot query a range")
	}

	found, err := s.collect(rows)
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

	start, end := prefixBounds(prefix)

	_, err = tx.ExecContext(ctx, sqliteUpsert,
		prefix.String(),
		prefix.Addr().BitLen(),
		start,
		end,
		value.LearnedCity,
		value.LearnedState,
		value.SampleCount,
		value.SuccessRate,
		value.AverageConfidence,
		value.PrimaryISP,
		value.PrimaryASN,
		value.FirstSeen.UnixNano(),
		value.LastSeen.UnixNano(),
		value.IsActive)
	if err != nil {
		return errors.Annotatef(err, "cannot store %s", prefix)
	}

	if err := tx.Commit(); err != nil {
		return errors.Annotate(err, "cannot commit a transaction")
	}

	return nil
}

func (s *SQLiteRangeStore) ListActive(ctx context.Context) ([]wherelib.LearnedIPRange, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM learned_ip_ranges WHERE is_active = 1 ORDER BY cidr")
	if err != nil {
		return nil, errors.Annotate(err, "cannot query ranges")
	}

	return s.collect(rows)
}

func (s *SQLiteRangeStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRangeStore) collect(rows *sql.Rows) ([]wherelib.LearnedIPRange, error) {
	defer rows.Close()

	rv := []wherelib.LearnedIPRange{}

	for rows.Next() {
		var (
			value     wherelib.LearnedIPRange
			cidr      string
			firstSeen int64
			lastSeen  int64
		)

		err := rows.Scan(&cidr,
			&value.LearnedCity,
			&value.LearnedState,
			&value.SampleCount,
			&value.SuccessRate,
			&value.AverageConfidence,
			&value.PrimaryISP,
			&value.PrimaryASN,
			&firstSeen,
			&lastSeen,
			&value.IsActive)
		if err != nil {
			return nil, errors.Annotate(err, "cannot scan a row")
		}

		if value.CIDR, err = netip.ParsePrefix(cidr); err != nil {
			return nil, errors.Annotatef(err, "incorrect cidr %s", cidr)
		}

		value.FirstSeen = time.Unix(0, firstSeen).UTC()
		value.LastSeen = time.Unix(0, lastSeen).UTC()
		rv = append(rv, value)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Annotate(err, "cannot read rows")
	}

	return rv, nil
}

// prefixBounds returns the first and the last addresses of the prefix
// in 16-byte form. Byte slices of the same length compare in SQLite
// the same way as addresses do.
func prefixBounds(prefix netip.Prefix) ([]byte, []byte) {
	start := prefix.Addr().Unmap().As16()
	end := start
	bits := prefix.Bits()

	if prefix.Addr().Unmap().Is4() {
		bits += 96
	}

	for i := bits; i < 128; i++ {
		end[i/8] |= 1 << (7 - uint(i%8))
	}

	return start[:], end[:]
}

// NewSQLiteRangeStore opens (or creates) a database file. Use
// ':memory:' for a database which lives until Close.
func NewSQLiteRangeStore(ctx context.Context, path string) (*SQLiteRangeStore, error) {
	if path == "" {
		return nil, errors.NotValidf("empty path to sqlite database")
	}

	dsn := path

	if strings.Contains(dsn, "?") {
		dsn += "&" + sqliteDSNOptions
	} else {
		dsn += "?" + sqliteDSNOptions
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Annotate(err, "cannot open sqlite database")
	}

	// sqlite allows a single writer anyway; for :memory: each
	// connection is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close() // nolint: errcheck

		return nil, errors.Annotate(err, "cannot create a schema")
	}

	return &SQLiteRangeStore{db: db}, nil
}
