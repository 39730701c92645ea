package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlens/reviews-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresCreateProject(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(pgxmock.AnyArg(), "P", "desc", "owner", "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := s.CreateProject(context.Background(), "P", "desc", "owner")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, model.StatusPending, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProjectNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, description, owner").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateProjectStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE projects SET status").
		WithArgs("error", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateProjectStatus(context.Background(), "missing", model.StatusError)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertReviewsUsesCopy(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"reviews"}, reviewColumns).WillReturnResult(2)

	raws := []model.RawReview{
		{Text: "kept one", Rating: 4, Source: model.SourcePaidScrape},
		{Text: "", Rating: 5},
		{Text: "kept two", Rating: 2, Source: model.SourcePaidScrape, OccurredOn: time.Now()},
	}
	persisted, err := s.InsertReviews(context.Background(), "proj-1", raws)
	require.NoError(t, err)
	require.Len(t, persisted, 2, "empty-text review dropped before COPY")
	assert.Equal(t, "proj-1", persisted[0].ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertAnalysisConflictIsNoop(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO review_analyses").
		WithArgs(pgxmock.AnyArg(), "rev-1", "positive", 0.9, 0.8, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	_, err := s.InsertAnalysis(context.Background(), "rev-1", model.ReviewAnalysisResult{
		PrimaryCategory:   model.SentimentPositive,
		PrimaryConfidence: 0.9,
		SentimentScore:    0.8,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteProjectNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM projects").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
