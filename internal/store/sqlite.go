package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"rtcwstats/internal/config"
	"rtcwstats/internal/constants"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// NewDB opens the SQLite database, applies pragmas and runs migrations.
func NewDB(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("path", cfg.DBPath).Msg("connecting to database")

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	if err := optimizeSQLite(db, logger); err != nil {
		logger.Error().Err(err).Msg("failed to optimize SQLite")
		return nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := runMigrations(db, logger); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Msg("database connection established")
	return db, nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}

func optimizeSQLite(sqlDB *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", "-64000"},
		{"busy_timeout", "5000"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := sqlDB.Exec(query); err != nil {
			logger.Warn().
				Err(err).
				Str("pragma", pragma.name).
				Str("value", pragma.value).
				Msg("failed to set pragma")
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
	}

	return nil
}

// SQLiteStore implements Store over the records table. Batch writes run in a
// transaction, so a chunk is either fully applied or fully unprocessed.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger}
}

const recordColumns = "pk, sk, lsipk, gsi1pk, gsi1sk, data, real_name, games, match_id, updated_at"

func (s *SQLiteStore) Get(ctx context.Context, pk, sk string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE pk = ? AND sk = ?", pk, sk)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", pk, sk, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, upsertSQL, upsertArgs(rec)...)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", rec.PK, rec.SK, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE pk = ? AND sk = ?", key.PK, key.SK)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", key.PK, key.SK, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	pkCol, skCol := indexColumns(q.Index)

	sqlq := "SELECT " + recordColumns + " FROM records WHERE " + pkCol + " = ?"
	args := []any{q.PK}

	switch {
	case q.Prefix != "":
		sqlq += " AND " + skCol + " >= ? AND " + skCol + " < ?"
		args = append(args, q.Prefix, prefixUpperBound(q.Prefix))
	case q.Low != "" || q.High != "":
		sqlq += " AND " + skCol + " BETWEEN ? AND ?"
		args = append(args, q.Low, q.High)
	}

	if q.Descending {
		sqlq += " ORDER BY " + skCol + " DESC"
	} else {
		sqlq += " ORDER BY " + skCol + " ASC"
	}
	if q.Limit > 0 {
		sqlq += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s on %q: %w", q.PK, q.Index, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) BatchGet(ctx context.Context, keys []Key) ([]Record, error) {
	recs := make([]Record, 0, len(keys))
	for start := 0; start < len(keys); start += constants.BatchChunkSize {
		end := start + constants.BatchChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk, err := s.batchGetChunk(ctx, keys[start:end])
		if err != nil {
			return nil, err
		}
		recs = append(recs, chunk...)
	}
	return recs, nil
}

func (s *SQLiteStore) batchGetChunk(ctx context.Context, keys []Key) ([]Record, error) {
	sqlq := "SELECT " + recordColumns + " FROM records WHERE (pk, sk) IN (VALUES "
	args := make([]any, 0, len(keys)*2)
	for i, key := range keys {
		if i > 0 {
			sqlq += ","
		}
		sqlq += "(?, ?)"
		args = append(args, key.PK, key.SK)
	}
	sqlq += ")"

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, fmt.Errorf("batch get: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch get row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) WriteBatch(ctx context.Context, puts []Record, deletes []Key) ([]Record, []Key, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return puts, deletes, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range puts {
		if _, err := tx.ExecContext(ctx, upsertSQL, upsertArgs(rec)...); err != nil {
			return puts, deletes, fmt.Errorf("failed to upsert %s/%s: %w", rec.PK, rec.SK, err)
		}
	}
	for _, key := range deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE pk = ? AND sk = ?", key.PK, key.SK); err != nil {
			return puts, deletes, fmt.Errorf("failed to delete %s/%s: %w", key.PK, key.SK, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return puts, deletes, fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil, nil, nil
}

const upsertSQL = `
INSERT INTO records (pk, sk, lsipk, gsi1pk, gsi1sk, data, real_name, games, match_id, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (pk, sk) DO UPDATE SET
	lsipk = excluded.lsipk,
	gsi1pk = excluded.gsi1pk,
	gsi1sk = excluded.gsi1sk,
	data = excluded.data,
	real_name = excluded.real_name,
	games = excluded.games,
	match_id = excluded.match_id,
	updated_at = excluded.updated_at`

func upsertArgs(rec Record) []any {
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return []any{rec.PK, rec.SK, rec.LSIPK, rec.GSI1PK, rec.GSI1SK, string(rec.Data), rec.RealName, rec.Games, rec.MatchID, updatedAt}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var data string
	if err := row.Scan(&rec.PK, &rec.SK, &rec.LSIPK, &rec.GSI1PK, &rec.GSI1SK, &data, &rec.RealName, &rec.Games, &rec.MatchID, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Data = []byte(data)
	return rec, nil
}

func indexColumns(index string) (string, string) {
	switch index {
	case "lsi":
		return "pk", "lsipk"
	case "gsi1":
		return "gsi1pk", "gsi1sk"
	default:
		return "pk", "sk"
	}
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix.
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return prefix + "\xff"
}
