package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"portfolio/model"
)

const analyticsSchema = `
CREATE TABLE IF NOT EXISTS page_views (
	id TEXT PRIMARY KEY,
	page TEXT NOT NULL,
	referrer TEXT NOT NULL,
	screen_size TEXT,
	client_time TEXT,
	received_at DATETIME NOT NULL,
	raw_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_page_views_page ON page_views(page);

CREATE TABLE IF NOT EXISTS project_views (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	project_name TEXT NOT NULL,
	client_time TEXT,
	received_at DATETIME NOT NULL
);
`

// ViewStore keeps page-view analytics in SQLite.
type ViewStore struct {
	db   *sql.DB
	path string
}

// OpenViewStore opens or creates the SQLite database at path.
func OpenViewStore(path string) (*ViewStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(analyticsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init analytics schema: %w", err)
	}
	return &ViewStore{db: db, path: path}, nil
}

func (s *ViewStore) Close() error {
	return s.db.Close()
}

func (s *ViewStore) RecordPageView(ctx context.Context, v model.PageView) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_views (id, page, referrer, screen_size, client_time, received_at, raw_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Page, v.Referrer, v.ScreenSize, v.ClientTime, v.ReceivedAt.UTC().Format(time.RFC3339Nano), string(v.RawJSON),
	)
	if err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	return nil
}

func (s *ViewStore) RecordProjectView(ctx context.Context, v model.ProjectView, receivedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO project_views (project_id, project_name, client_time, received_at) VALUES (?, ?, ?, ?)`,
		v.ProjectID, v.ProjectName, v.Timestamp, receivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert project view: %w", err)
	}
	return nil
}

// PageCounts returns view totals per page, busiest first.
func (s *ViewStore) PageCounts(ctx context.Context) ([]model.PageCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, COUNT(*) FROM page_views GROUP BY page ORDER BY COUNT(*) DESC, page ASC`)
	if err != nil {
		return nil, fmt.Errorf("query page counts: %w", err)
	}
	defer rows.Close()

	out := []model.PageCount{}
	for rows.Next() {
		var pc model.PageCount
		if err := rows.Scan(&pc.Page, &pc.Views); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// ProjectViewCount returns how many views a project has received.
func (s *ViewStore) ProjectViewCount(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_views WHERE project_id = ?`, projectID).Scan(&n)
	return n, err
}
