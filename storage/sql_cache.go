package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"llamarural/models"
	"llamarural/utils"
)

// SQLCache persists the last result set in a relational table. It works with
// the "postgres" (lib/pq) and "sqlite" (modernc) drivers; both accept the
// $N placeholder style used below.
type SQLCache struct {
	db     *sql.DB
	driver string
}

// OpenSQLCache opens a connection, waits for the server with retry, runs
// the schema migration and returns a ready-to-use SQLCache.
func OpenSQLCache(ctx context.Context, driver, dsn string, retry *utils.RetryConfig) (*SQLCache, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	ping := func(ctx context.Context) error { return db.PingContext(ctx) }
	if retry != nil {
		err = retry.Do(ctx, driver+" ping", ping)
	} else {
		err = ping(ctx)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}

	c := &SQLCache{db: db, driver: driver}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", driver, err)
	}
	return c, nil
}

func (c *SQLCache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cached_results (
			seq          INTEGER          PRIMARY KEY,
			distance_km  DOUBLE PRECISION NOT NULL,
			locality     TEXT             NOT NULL DEFAULT '',
			operator     TEXT             NOT NULL DEFAULT '',
			department   TEXT             NOT NULL DEFAULT '',
			province     TEXT             NOT NULL DEFAULT '',
			district     TEXT             NOT NULL DEFAULT '',
			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL,
			technologies TEXT             NOT NULL DEFAULT '',
			high_speed   BOOLEAN          NOT NULL DEFAULT FALSE,
			speed        TEXT             NOT NULL DEFAULT ''
		)`)
	return err
}

// Persist replaces the stored set inside one transaction, inserting in
// batches.
func (c *SQLCache) Persist(ctx context.Context, results []models.CachedResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w: %w", c.driver, ErrCacheWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cached_results"); err != nil {
		return fmt.Errorf("%s: clear: %w: %w", c.driver, ErrCacheWrite, err)
	}

	const batchSize = 50
	for i := 0; i < len(results); i += batchSize {
		end := i + batchSize
		if end > len(results) {
			end = len(results)
		}
		if err := insertBatch(ctx, tx, i, results[i:end]); err != nil {
			return fmt.Errorf("%s: insert: %w: %w", c.driver, ErrCacheWrite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w: %w", c.driver, ErrCacheWrite, err)
	}
	return nil
}

const sqlColumns = 12

func insertBatch(ctx context.Context, tx *sql.Tx, offset int, batch []models.CachedResult) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*sqlColumns)

	for idx, r := range batch {
		base := idx * sqlColumns
		ph := make([]string, sqlColumns)
		for k := range ph {
			ph[k] = fmt.Sprintf("$%d", base+k+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			offset+idx, r.DistanceKm, r.Locality, r.Operator, r.Department, r.Province,
			r.District, r.Latitude, r.Longitude, strings.Join(r.Technologies, ","),
			r.HighSpeed, r.Speed)
	}

	query := fmt.Sprintf(`
		INSERT INTO cached_results (seq, distance_km, locality, operator, department, province,
			district, latitude, longitude, technologies, high_speed, speed)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// Load returns the stored set in its original order.
func (c *SQLCache) Load(ctx context.Context) ([]models.CachedResult, bool) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT distance_km, locality, operator, department, province, district,
			latitude, longitude, technologies, high_speed, speed
		FROM cached_results
		ORDER BY seq
	`)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var results []models.CachedResult
	for rows.Next() {
		var r models.CachedResult
		var techs string
		if err := rows.Scan(
			&r.DistanceKm, &r.Locality, &r.Operator, &r.Department, &r.Province, &r.District,
			&r.Latitude, &r.Longitude, &techs, &r.HighSpeed, &r.Speed,
		); err != nil {
			return nil, false
		}
		r.Technologies = splitTechnologies(techs)
		results = append(results, r)
	}
	if rows.Err() != nil || len(results) == 0 {
		return nil, false
	}
	return results, true
}

func (c *SQLCache) Close() error {
	return c.db.Close()
}

func splitTechnologies(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
