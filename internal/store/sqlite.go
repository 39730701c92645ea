package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reviewlens/reviews-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Foreign keys are enabled explicitly because project deletion relies
// on cascade semantics.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	owner            TEXT NOT NULL DEFAULT '',
	total_reviews    INTEGER NOT NULL DEFAULT 0,
	analyzed_reviews INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	rating      INTEGER NOT NULL DEFAULT 3,
	author      TEXT NOT NULL DEFAULT '',
	occurred_on DATETIME,
	source      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_analyses (
	id                 TEXT PRIMARY KEY,
	review_id          TEXT NOT NULL UNIQUE REFERENCES reviews(id) ON DELETE CASCADE,
	primary_category   TEXT NOT NULL,
	primary_confidence REAL NOT NULL,
	sentiment_score    REAL NOT NULL,
	result             TEXT NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
CREATE INDEX IF NOT EXISTS idx_reviews_project_id ON reviews(project_id);
CREATE INDEX IF NOT EXISTS idx_review_analyses_review_id ON review_analyses(review_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProject(ctx context.Context, name, description, owner string) (*model.Project, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, owner, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, description, owner, string(model.StatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert project")
	}

	return &model.Project{
		ID:          id,
		Name:        name,
		Description: description,
		Owner:       owner,
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, owner, total_reviews, analyzed_reviews, status, created_at, updated_at
		 FROM projects WHERE id = ?`,
		projectID,
	)

	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Owner,
		&p.TotalReviews, &p.AnalyzedReviews, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "project %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %s", projectID)
	}
	return &p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT id, name, description, owner, total_reviews, analyzed_reviews, status, created_at, updated_at
	          FROM projects WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Owner != "" {
		query += ` AND owner = ?`
		args = append(args, filter.Owner)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Owner,
			&p.TotalReviews, &p.AnalyzedReviews, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete project %s", projectID)
	}
	return checkRowsAffected(res, "project", projectID)
}

func (s *SQLiteStore) UpdateProjectStatus(ctx context.Context, projectID string, status model.ProjectStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update project status %s", projectID)
	}
	return checkRowsAffected(res, "project", projectID)
}

func (s *SQLiteStore) UpdateProjectProgress(ctx context.Context, projectID string, totalReviews, analyzedReviews int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET total_reviews = ?, analyzed_reviews = ?, updated_at = ? WHERE id = ?`,
		totalReviews, analyzedReviews, time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update project progress %s", projectID)
	}
	return checkRowsAffected(res, "project", projectID)
}

func (s *SQLiteStore) InsertReviews(ctx context.Context, projectID string, reviews []model.RawReview) ([]model.Review, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert reviews")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reviews (id, project_id, text, rating, author, occurred_on, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert review")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	persisted := make([]model.Review, 0, len(reviews))
	for _, raw := range reviews {
		if raw.Text == "" {
			continue
		}
		review := model.Review{
			ID:         uuid.New().String(),
			ProjectID:  projectID,
			Text:       raw.Text,
			Rating:     raw.Rating,
			Author:     raw.Author,
			OccurredOn: raw.OccurredOn,
			Source:     raw.Source,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := stmt.ExecContext(ctx,
			review.ID, review.ProjectID, review.Text, review.Rating, review.Author,
			nullTime(review.OccurredOn), string(review.Source), now, now,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert review")
		}
		persisted = append(persisted, review)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert reviews")
	}
	return persisted, nil
}

const sqliteReviewColumns = `id, project_id, text, rating, author, occurred_on, source, created_at, updated_at`

func (s *SQLiteStore) ListReviews(ctx context.Context, projectID string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteReviewColumns+` FROM reviews WHERE project_id = ? ORDER BY created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()
	return scanSQLiteReviews(rows)
}

func (s *SQLiteStore) ReviewsWithoutAnalysis(ctx context.Context, projectID string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.project_id, r.text, r.rating, r.author, r.occurred_on, r.source, r.created_at, r.updated_at
		 FROM reviews r
		 LEFT JOIN review_analyses a ON a.review_id = r.id
		 WHERE r.project_id = ? AND a.id IS NULL
		 ORDER BY r.created_at, r.id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unanalyzed reviews")
	}
	defer rows.Close()
	return scanSQLiteReviews(rows)
}

func (s *SQLiteStore) InsertAnalysis(ctx context.Context, reviewID string, result model.ReviewAnalysisResult) (*model.ReviewAnalysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal analysis result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_analyses (id, review_id, primary_category, primary_confidence, sentiment_score, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(review_id) DO NOTHING`,
		id, reviewID, string(result.PrimaryCategory), result.PrimaryConfidence,
		result.SentimentScore, string(resultJSON), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for review %s", reviewID)
	}

	return &model.ReviewAnalysis{
		ID:        id,
		ReviewID:  reviewID,
		Result:    result,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) RecentAnalyses(ctx context.Context, projectID string, limit int) ([]model.ReviewAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.review_id, a.result, a.created_at
		 FROM review_analyses a
		 JOIN reviews r ON r.id = a.review_id
		 WHERE r.project_id = ?
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent analyses")
	}
	defer rows.Close()

	var analyses []model.ReviewAnalysis
	for rows.Next() {
		var a model.ReviewAnalysis
		var resultJSON string
		if err := rows.Scan(&a.ID, &a.ReviewID, &resultJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis result")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: recent analyses iterate")
}

func (s *SQLiteStore) ProjectSummary(ctx context.Context, projectID string) (*model.ProjectSummary, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.primary_category, a.primary_confidence, a.sentiment_score, a.result
		 FROM review_analyses a
		 JOIN reviews r ON r.id = a.review_id
		 WHERE r.project_id = ?`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: project summary")
	}
	defer rows.Close()

	var summaryRows []summaryRow
	for rows.Next() {
		var sr summaryRow
		var resultJSON string
		if err := rows.Scan(&sr.category, &sr.confidence, &sr.sentiment, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary row")
		}
		var result model.ReviewAnalysisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary result")
		}
		sr.themes = result.Themes
		summaryRows = append(summaryRows, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: project summary iterate")
	}

	return buildSummary(project, summaryRows), nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanSQLiteReviews(rows *sql.Rows) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var occurredOn sql.NullTime
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Text, &r.Rating, &r.Author,
			&occurredOn, &r.Source, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		if occurredOn.Valid {
			r.OccurredOn = occurredOn.Time
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: iterate reviews")
}
