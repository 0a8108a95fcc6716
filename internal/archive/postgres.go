// Package archive keeps a durable history of every timeline fetched from the
// upstream provider.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const createTable = `
CREATE TABLE IF NOT EXISTS snapshot_archive (
	provider             TEXT             NOT NULL,
	lat_q                BIGINT           NOT NULL,
	lon_q                BIGINT           NOT NULL,
	precision            SMALLINT         NOT NULL,
	hour                 TIMESTAMPTZ      NOT NULL,
	temperature_apparent DOUBLE PRECISION NOT NULL,
	weather_description  TEXT             NOT NULL,
	fetched_at           TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (provider, lat_q, lon_q, precision, hour)
);`

const upsertSnapshot = `
INSERT INTO snapshot_archive
	(provider, lat_q, lon_q, precision, hour, temperature_apparent, weather_description, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (provider, lat_q, lon_q, precision, hour) DO UPDATE
SET temperature_apparent = EXCLUDED.temperature_apparent,
	weather_description = EXCLUDED.weather_description,
	fetched_at = EXCLUDED.fetched_at;`

// PostgresArchive upserts every snapshot of a fetched timeline. It implements
// weather.TimelineObserver.
type PostgresArchive struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// New opens dsn with the pgx driver, verifies the connection and creates the table.
func New(ctx context.Context, dsn string, log logrus.FieldLogger) (*PostgresArchive, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}

	a := NewWithDB(db, log)
	if err := a.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// NewWithDB wraps an already opened database.
func NewWithDB(db *sql.DB, log logrus.FieldLogger) *PostgresArchive {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostgresArchive{db: db, log: log.WithField("component", "snapshot_archive")}
}

// Migrate creates the archive table when missing.
func (a *PostgresArchive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create snapshot_archive table: %w", err)
	}
	return nil
}

// TimelineFetched stores the whole timeline in one transaction.
func (a *PostgresArchive) TimelineFetched(ctx context.Context, fetch weather.TimelineFetch) error {
	if fetch.Snapshots == nil || fetch.Snapshots.Len() == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range fetch.Snapshots.Snapshots() {
		_, err := tx.ExecContext(ctx, upsertSnapshot,
			fetch.Provider,
			fetch.Point.Lat,
			fetch.Point.Lon,
			fetch.Precision,
			s.Timestamp(),
			s.ApparentTemperature(),
			string(s.Description()),
			fetch.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to archive snapshot %s: %w", s.Timestamp().Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"provider":  fetch.Provider,
		"snapshots": fetch.Snapshots.Len(),
	}).Debug("timeline archived")
	return nil
}

func (a *PostgresArchive) Close() error {
	return a.db.Close()
}
