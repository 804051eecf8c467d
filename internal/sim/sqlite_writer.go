package sim

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"swarmnet-sim/internal/telemetry"
)

// SQLiteWriter persists link state and delivery rows to a local SQLite
// database. Intended for offline analysis of a finished run.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path and prepares
// the schema.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteWriter{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS link_state (
			cluster_id TEXT NOT NULL,
			address TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			neighbor_count INTEGER NOT NULL,
			on_outage INTEGER NOT NULL,
			ts TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_link_state_address ON link_state(address, ts);`,
		`CREATE TABLE IF NOT EXISTS delivery (
			cluster_id TEXT NOT NULL,
			msg_id TEXT NOT NULL,
			src_address TEXT NOT NULL,
			dst_address TEXT NOT NULL,
			dst_port INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			recipients INTEGER NOT NULL,
			delivered INTEGER NOT NULL,
			unknown INTEGER NOT NULL,
			ts TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_src ON delivery(src_address, ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteLinkState inserts a single link state row.
func (w *SQLiteWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	return w.WriteLinkStates([]telemetry.LinkStateRow{row})
}

// WriteLinkStates inserts multiple link state rows in one transaction.
func (w *SQLiteWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO link_state
		(cluster_id, address, x, y, z, neighbor_count, on_outage, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.ClusterID, r.Address, r.X, r.Y, r.Z,
			r.NeighborCount, boolToInt(r.OnOutage), r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// WriteDelivery inserts a single delivery row.
func (w *SQLiteWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	return w.WriteDeliveries([]telemetry.DeliveryRow{row})
}

// WriteDeliveries inserts multiple delivery rows in one transaction.
func (w *SQLiteWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO delivery
		(cluster_id, msg_id, src_address, dst_address, dst_port, bytes, recipients, delivered, unknown, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.ClusterID, r.MsgID, r.SrcAddress, r.DstAddress,
			r.DstPort, r.Bytes, r.Recipients, r.Delivered, boolToInt(r.Unknown),
			r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
