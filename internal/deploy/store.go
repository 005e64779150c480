package deploy

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists deployment records in the local database.
type Store struct {
	db *sql.DB
}

// NewStore creates a deployment store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the deployment history table.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deployments (
			id TEXT PRIMARY KEY,
			version TEXT NOT NULL UNIQUE,
			manifest_hash TEXT NOT NULL,
			functions_hash TEXT NOT NULL,
			manifest_snapshot TEXT NOT NULL,
			functions_snapshot TEXT,
			deployed_at TEXT NOT NULL DEFAULT (datetime('now')),
			status TEXT NOT NULL DEFAULT 'active',
			rollback_to TEXT,
			description TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_deployments_status ON deployments(status);
		CREATE INDEX IF NOT EXISTS idx_deployments_deployed_at ON deployments(deployed_at);
	`)
	return err
}

// Current returns the active deployment or nil when none exists.
func (s *Store) Current() (*Deployment, error) {
	row := s.db.QueryRow(`
		SELECT id, version, manifest_hash, functions_hash, manifest_snapshot,
		       functions_snapshot, deployed_at, status, rollback_to, description
		FROM deployments
		WHERE status = ?
		ORDER BY deployed_at DESC
		LIMIT 1
	`, StatusActive)

	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil deployment is valid when none exists
	}
	return d, err
}

// Get returns a deployment by version or nil when not found.
func (s *Store) Get(version string) (*Deployment, error) {
	row := s.db.QueryRow(`
		SELECT id, version, manifest_hash, functions_hash, manifest_snapshot,
		       functions_snapshot, deployed_at, status, rollback_to, description
		FROM deployments
		WHERE version = ?
	`, version)

	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil deployment is valid when version not found
	}
	return d, err
}

// List returns deployment history, newest first.
func (s *Store) List(limit int) ([]*Deployment, error) {
	query := `
		SELECT id, version, manifest_hash, functions_hash, manifest_snapshot,
		       functions_snapshot, deployed_at, status, rollback_to, description
		FROM deployments
		ORDER BY deployed_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}

	return deployments, rows.Err()
}

// NextVersion returns the next deployment version string.
func (s *Store) NextVersion() (string, error) {
	var maxNum int
	rows, err := s.db.Query(`SELECT version FROM deployments`)
	if err != nil {
		return "", fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", fmt.Errorf("scanning version: %w", err)
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(v, "v")); err == nil && n > maxNum {
			maxNum = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return fmt.Sprintf("v%d", maxNum+1), nil
}

// Create inserts a new deployment record, deactivating the previous active
// one in the same transaction. Records are immutable once written.
func (s *Store) Create(d *Deployment) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = StatusActive
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if d.Status == StatusActive {
		if _, err := tx.Exec(`
			UPDATE deployments SET status = ? WHERE status = ?
		`, StatusRolledBack, StatusActive); err != nil {
			return fmt.Errorf("deactivating previous deployment: %w", err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO deployments (
			id, version, manifest_hash, functions_hash, manifest_snapshot,
			functions_snapshot, status, rollback_to, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Version, d.ManifestHash, d.FunctionsHash, d.ManifestSnapshot,
		d.FunctionsSnapshot, d.Status, nullable(d.RollbackTo), nullable(d.Description)); err != nil {
		return fmt.Errorf("creating deployment: %w", err)
	}

	return tx.Commit()
}

// SetStatus updates the status of a deployment.
func (s *Store) SetStatus(version string, status Status, rollbackTo string) error {
	res, err := s.db.Exec(`
		UPDATE deployments SET status = ?, rollback_to = ? WHERE version = ?
	`, status, nullable(rollbackTo), version)
	if err != nil {
		return fmt.Errorf("updating deployment status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("deployment %s not found", version)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row scanner) (*Deployment, error) {
	var d Deployment
	var deployedAt string
	var functionsSnapshot, rollbackTo, description sql.NullString

	err := row.Scan(
		&d.ID, &d.Version, &d.ManifestHash, &d.FunctionsHash,
		&d.ManifestSnapshot, &functionsSnapshot, &deployedAt,
		&d.Status, &rollbackTo, &description,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning deployment: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, deployedAt); perr == nil {
		d.DeployedAt = t
	} else if t, perr := time.Parse("2006-01-02 15:04:05", deployedAt); perr == nil {
		d.DeployedAt = t
	}
	if functionsSnapshot.Valid {
		d.FunctionsSnapshot = functionsSnapshot.String
	}
	if rollbackTo.Valid {
		d.RollbackTo = rollbackTo.String
	}
	if description.Valid {
		d.Description = description.String
	}

	return &d, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
