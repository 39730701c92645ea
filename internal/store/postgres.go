package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reviewlens/reviews-cli/internal/db"
	"github.com/reviewlens/reviews-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_project":             `SELECT id, name, description, owner, total_reviews, analyzed_reviews, status, created_at, updated_at FROM projects WHERE id = $1`,
	"update_project_status":   `UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_project_progress": `UPDATE projects SET total_reviews = $1, analyzed_reviews = $2, updated_at = $3 WHERE id = $4`,
	"insert_analysis":         `INSERT INTO review_analyses (id, review_id, primary_category, primary_confidence, sentiment_score, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (review_id) DO NOTHING`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	owner            TEXT NOT NULL DEFAULT '',
	total_reviews    INTEGER NOT NULL DEFAULT 0,
	analyzed_reviews INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	rating      INTEGER NOT NULL DEFAULT 3,
	author      TEXT NOT NULL DEFAULT '',
	occurred_on TIMESTAMPTZ,
	source      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_analyses (
	id                 TEXT PRIMARY KEY,
	review_id          TEXT NOT NULL UNIQUE REFERENCES reviews(id) ON DELETE CASCADE,
	primary_category   TEXT NOT NULL,
	primary_confidence DOUBLE PRECISION NOT NULL,
	sentiment_score    DOUBLE PRECISION NOT NULL,
	result             JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
CREATE INDEX IF NOT EXISTS idx_reviews_project_id ON reviews(project_id);
CREATE INDEX IF NOT EXISTS idx_review_analyses_review_id ON review_analyses(review_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, name, description, owner string) (*model.Project, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, name, description, owner, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, description, owner, string(model.StatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert project")
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

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	var p model.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, owner, total_reviews, analyzed_reviews, status, created_at, updated_at
		 FROM projects WHERE id = $1`,
		projectID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Owner,
		&p.TotalReviews, &p.AnalyzedReviews, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "project %s", projectID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project %s", projectID)
	}
	return &p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT id, name, description, owner, total_reviews, analyzed_reviews, status, created_at, updated_at
	          FROM projects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Owner != "" {
		query += fmt.Sprintf(` AND owner = $%d`, argIdx)
		args = append(args, filter.Owner)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Owner,
			&p.TotalReviews, &p.AnalyzedReviews, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		projects = append(projects, p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete project %s", projectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "project %s", projectID)
	}
	return nil
}

func (s *PostgresStore) UpdateProjectStatus(ctx context.Context, projectID string, status model.ProjectStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update project status %s", projectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "project %s", projectID)
	}
	return nil
}

func (s *PostgresStore) UpdateProjectProgress(ctx context.Context, projectID string, totalReviews, analyzedReviews int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET total_reviews = $1, analyzed_reviews = $2, updated_at = $3 WHERE id = $4`,
		totalReviews, analyzedReviews, time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update project progress %s", projectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "project %s", projectID)
	}
	return nil
}

var reviewColumns = []string{"id", "project_id", "text", "rating", "author", "occurred_on", "source", "created_at", "updated_at"}

// InsertReviews bulk-inserts via the COPY protocol; scrape runs can produce
// hundreds of rows at once.
func (s *PostgresStore) InsertReviews(ctx context.Context, projectID string, reviews []model.RawReview) ([]model.Review, error) {
	now := time.Now().UTC()
	persisted := make([]model.Review, 0, len(reviews))
	copyRows := make([][]any, 0, len(reviews))

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
		var occurredOn any
		if !review.OccurredOn.IsZero() {
			occurredOn = review.OccurredOn
		}
		copyRows = append(copyRows, []any{
			review.ID, review.ProjectID, review.Text, review.Rating, review.Author,
			occurredOn, string(review.Source), now, now,
		})
		persisted = append(persisted, review)
	}

	if _, err := db.CopyFrom(ctx, s.pool, "reviews", reviewColumns, copyRows); err != nil {
		return nil, err
	}
	return persisted, nil
}

const postgresReviewSelect = `SELECT id, project_id, text, rating, author, occurred_on, source, created_at, updated_at FROM reviews`

func (s *PostgresStore) ListReviews(ctx context.Context, projectID string) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx,
		postgresReviewSelect+` WHERE project_id = $1 ORDER BY created_at, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()
	return scanPostgresReviews(rows)
}

func (s *PostgresStore) ReviewsWithoutAnalysis(ctx context.Context, projectID string) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.project_id, r.text, r.rating, r.author, r.occurred_on, r.source, r.created_at, r.updated_at
		 FROM reviews r
		 LEFT JOIN review_analyses a ON a.review_id = r.id
		 WHERE r.project_id = $1 AND a.id IS NULL
		 ORDER BY r.created_at, r.id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unanalyzed reviews")
	}
	defer rows.Close()
	return scanPostgresReviews(rows)
}

func (s *PostgresStore) InsertAnalysis(ctx context.Context, reviewID string, result model.ReviewAnalysisResult) (*model.ReviewAnalysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal analysis result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO review_analyses (id, review_id, primary_category, primary_confidence, sentiment_score, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (review_id) DO NOTHING`,
		id, reviewID, string(result.PrimaryCategory), result.PrimaryConfidence,
		result.SentimentScore, resultJSON, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for review %s", reviewID)
	}

	return &model.ReviewAnalysis{
		ID:        id,
		ReviewID:  reviewID,
		Result:    result,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) RecentAnalyses(ctx context.Context, projectID string, limit int) ([]model.ReviewAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.review_id, a.result, a.created_at
		 FROM review_analyses a
		 JOIN reviews r ON r.id = a.review_id
		 WHERE r.project_id = $1
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent analyses")
	}
	defer rows.Close()

	var analyses []model.ReviewAnalysis
	for rows.Next() {
		var a model.ReviewAnalysis
		var resultJSON []byte
		if err := rows.Scan(&a.ID, &a.ReviewID, &resultJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis result")
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: recent analyses iterate")
}

func (s *PostgresStore) ProjectSummary(ctx context.Context, projectID string) (*model.ProjectSummary, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT a.primary_category, a.primary_confidence, a.sentiment_score, a.result
		 FROM review_analyses a
		 JOIN reviews r ON r.id = a.review_id
		 WHERE r.project_id = $1`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: project summary")
	}
	defer rows.Close()

	var summaryRows []summaryRow
	for rows.Next() {
		var sr summaryRow
		var resultJSON []byte
		if err := rows.Scan(&sr.category, &sr.confidence, &sr.sentiment, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary row")
		}
		var result model.ReviewAnalysisResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary result")
		}
		sr.themes = result.Themes
		summaryRows = append(summaryRows, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: project summary iterate")
	}

	return buildSummary(project, summaryRows), nil
}

func scanPostgresReviews(rows pgx.Rows) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var occurredOn *time.Time
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Text, &r.Rating, &r.Author,
			&occurredOn, &r.Source, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		if occurredOn != nil {
			r.OccurredOn = *occurredOn
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: iterate reviews")
}
