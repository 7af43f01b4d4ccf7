// Package results provides SQLite-based storage for simulation outputs:
// per-run evacuation times and per-set heatmaps.
package results

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection for simulation results.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS simulation_sets (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		exits TEXT NOT NULL,
		accessible INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		set_id TEXT NOT NULL REFERENCES simulation_sets(id),
		seed INTEGER NOT NULL,
		timesteps INTEGER NOT NULL,
		pedestrians INTEGER NOT NULL,
		dead INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS heatmap_cells (
		set_id TEXT NOT NULL REFERENCES simulation_sets(id),
		lin INTEGER NOT NULL,
		col INTEGER NOT NULL,
		mean_visits REAL NOT NULL,
		PRIMARY KEY (set_id, lin, col)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_set ON runs(set_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SimulationSet identifies one exit configuration in the store.
type SimulationSet struct {
	ID         string `db:"id"`
	Label      string `db:"label"`
	Exits      string `db:"exits"`
	Accessible bool   `db:"accessible"`
}

// Run records one completed run.
type Run struct {
	ID          string `db:"id"`
	SetID       string `db:"set_id"`
	Seed        int64  `db:"seed"`
	Timesteps   int    `db:"timesteps"`
	Pedestrians int    `db:"pedestrians"`
	Dead        int    `db:"dead"`
}

// CreateSet registers a simulation set and returns its generated id.
func (s *Store) CreateSet(label, exits string, accessible bool) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(
		`INSERT INTO simulation_sets (id, label, exits, accessible) VALUES (?, ?, ?, ?)`,
		id, label, exits, accessible)
	if err != nil {
		return "", fmt.Errorf("create set: %w", err)
	}
	return id, nil
}

// SaveRun records one run for a set and returns the run id.
func (s *Store) SaveRun(setID string, seed int64, timesteps, pedestrians, dead int) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.Exec(
		`INSERT INTO runs (id, set_id, seed, timesteps, pedestrians, dead) VALUES (?, ?, ?, ?, ?, ?)`,
		id, setID, seed, timesteps, pedestrians, dead)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return id, nil
}

// SaveHeatmap stores the mean visit count per cell for a set, replacing any
// previous heatmap for it.
func (s *Store) SaveHeatmap(setID string, lines, columns int, mean func(lin, col int) float64) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM heatmap_cells WHERE set_id = ?`, setID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(
		`INSERT INTO heatmap_cells (set_id, lin, col, mean_visits) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < lines; i++ {
		for j := 0; j < columns; j++ {
			v := mean(i, j)
			if v == 0 {
				continue
			}
			if _, err := stmt.Exec(setID, i, j, v); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// EvacuationStats summarizes the evacuation times recorded for a set.
type EvacuationStats struct {
	Runs int     `db:"runs"`
	Min  int     `db:"min"`
	Max  int     `db:"max"`
	Mean float64 `db:"mean"`
	Dead int     `db:"dead"`
}

// SetStats returns the aggregate evacuation statistics for a set.
func (s *Store) SetStats(setID string) (EvacuationStats, error) {
	var stats EvacuationStats
	err := s.conn.Get(&stats, `
		SELECT COUNT(*) AS runs,
		       COALESCE(MIN(timesteps), 0) AS min,
		       COALESCE(MAX(timesteps), 0) AS max,
		       COALESCE(AVG(timesteps), 0) AS mean,
		       COALESCE(SUM(dead), 0) AS dead
		FROM runs WHERE set_id = ?`, setID)
	if err != nil {
		return EvacuationStats{}, fmt.Errorf("set stats: %w", err)
	}
	return stats, nil
}
