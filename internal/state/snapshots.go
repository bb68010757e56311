package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autocitation/autocite/pkg/core"
)

// SaveSnapshot stores the project as it was at the end of a run.
// A second snapshot for the same run replaces the first.
func (s *Store) SaveSnapshot(ctx context.Context, runID string, proj *core.Project) error {
	if s.db == nil {
		return errNotOpen
	}

	data, err := proj.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (run_id, project, records, created_at) VALUES (?, ?, ?, ?)`,
		runID, string(data), len(proj.Records), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for folder and the id of
// the run that produced it. It returns nil without error when there is none.
func (s *Store) LatestSnapshot(ctx context.Context, folder string) (*core.Project, string, error) {
	if s.db == nil {
		return nil, "", errNotOpen
	}

	var runID, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT s.run_id, s.project
		 FROM snapshots s JOIN runs r ON r.id = s.run_id
		 WHERE r.folder = ?
		 ORDER BY s.created_at DESC, s.rowid DESC
		 LIMIT 1`,
		folder,
	).Scan(&runID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load snapshot: %w", err)
	}

	proj, err := core.ProjectFromJSON([]byte(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode snapshot of run %s: %w", runID, err)
	}
	return proj, runID, nil
}
