package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/newsroom-api/models"
	"github.com/upb/newsroom-api/repositories"
	"go.uber.org/zap"
)

var issueRowColumns = []string{
	"id", "name", "description", "start_date", "end_date", "articles", "featured",
	"is_published", "mid", "created_by", "updated_by", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (repositories.IssueRepository, sqlmock.Sqlmock, *DB) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db := NewDBFromConn(conn, zap.NewNop())
	return NewIssueRepository(db, zap.NewNop()), mock, db
}

func addIssueRow(rows *sqlmock.Rows, id uuid.UUID, published bool, articles ...uuid.UUID) *sqlmock.Rows {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	arr := "{"
	for i, a := range articles {
		if i > 0 {
			arr += ","
		}
		arr += a.String()
	}
	arr += "}"

	return rows.AddRow(id.String(), "March", "spring issue", start, start.AddDate(0, 1, 0), arr, "{}",
		published, "mid-1", "uid-1", "uid-1", start, start)
}

func TestIssueRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		id := uuid.New()
		article := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM issues WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, true, article))

		issue, err := repo.FindByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, id, issue.ID)
		assert.Equal(t, "March", issue.Name)
		assert.True(t, issue.IsPublished)
		assert.Equal(t, []uuid.UUID{article}, issue.Articles)
		assert.Empty(t, issue.Featured)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		id := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM issues WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, id)

		assert.ErrorIs(t, err, repositories.ErrIssueNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		dbErr := errors.New("connection lost")

		mock.ExpectQuery(`SELECT (.+) FROM issues`).WillReturnError(dbErr)

		_, err := repo.FindByID(ctx, uuid.New())

		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, repositories.ErrIssueNotFound)
	})
}

func TestIssueRepository_Find(t *testing.T) {
	ctx := context.Background()

	t.Run("only published", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		a, b := uuid.New(), uuid.New()

		rows := sqlmock.NewRows(issueRowColumns)
		addIssueRow(rows, a, true)
		addIssueRow(rows, b, true)

		mock.ExpectQuery(`SELECT (.+) FROM issues WHERE is_published = true ORDER BY start_date DESC, created_at DESC LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 0).
			WillReturnRows(rows)

		issues, err := repo.Find(ctx, models.IssueFilter{OnlyPublished: true}, 10, 0)

		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, a, issues[0].ID)
		assert.Equal(t, b, issues[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by ids including unpublished", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		id := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM issues WHERE id = ANY\(\$1\) ORDER BY (.+) LIMIT \$2 OFFSET \$3`).
			WithArgs(sqlmock.AnyArg(), 5, 10).
			WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, false))

		issues, err := repo.Find(ctx, models.IssueFilter{IDs: []uuid.UUID{id}}, 5, 10)

		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.False(t, issues[0].IsPublished)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no filter returns an empty slice", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)

		mock.ExpectQuery(`SELECT (.+) FROM issues ORDER BY (.+) LIMIT \$1 OFFSET \$2`).
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(issueRowColumns))

		issues, err := repo.Find(ctx, models.IssueFilter{}, 10, 0)

		require.NoError(t, err)
		assert.NotNil(t, issues)
		assert.Empty(t, issues)
	})

	t.Run("row error", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)

		rows := addIssueRow(sqlmock.NewRows(issueRowColumns), uuid.New(), true).
			RowError(0, fmt.Errorf("broken row"))
		mock.ExpectQuery(`SELECT (.+) FROM issues`).WillReturnRows(rows)

		_, err := repo.Find(ctx, models.IssueFilter{}, 10, 0)

		assert.Error(t, err)
	})
}

func TestIssueRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo, mock, _ := newMockRepo(t)

	issue := models.NewIssue("April", "", time.Now(), time.Now().Add(time.Hour), []uuid.UUID{uuid.New()}, nil, "mid", "uid")

	mock.ExpectExec(`INSERT INTO issues`).
		WithArgs(issue.ID, "April", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			false, "mid", "uid", "uid", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(ctx, issue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueRepository_UpdateProps(t *testing.T) {
	ctx := context.Background()

	t.Run("patches given fields", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		id := uuid.New()
		name := "Renamed"

		mock.ExpectQuery(`UPDATE issues SET (.+) WHERE id = \$1 RETURNING`).
			WithArgs(id, name, nil, nil, nil, "editor", sqlmock.AnyArg()).
			WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, true))

		issue, err := repo.UpdateProps(ctx, id, models.IssuePatch{Name: &name}, "editor")

		require.NoError(t, err)
		assert.Equal(t, id, issue.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)

		mock.ExpectQuery(`UPDATE issues`).WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateProps(ctx, uuid.New(), models.IssuePatch{}, "editor")

		assert.ErrorIs(t, err, repositories.ErrIssueNotFound)
	})
}

func TestIssueRepository_UpdateArticles(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps featured when nil", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		id := uuid.New()
		article := uuid.New()

		mock.ExpectQuery(`UPDATE issues SET (.+) featured = COALESCE\(\$3, featured\)`).
			WithArgs(id, sqlmock.AnyArg(), nil, "editor", sqlmock.AnyArg()).
			WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, true, article))

		issue, err := repo.UpdateArticles(ctx, id, []uuid.UUID{article}, nil, "editor")

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{article}, issue.Articles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)

		mock.ExpectQuery(`UPDATE issues`).WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateArticles(ctx, uuid.New(), nil, []uuid.UUID{}, "editor")

		assert.ErrorIs(t, err, repositories.ErrIssueNotFound)
	})
}

func TestIssueRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo, mock, _ := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`DELETE FROM issues WHERE id = \$1 RETURNING`).
		WithArgs(id).
		WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, false))

	issue, err := repo.Remove(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, id, issue.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueRepository_UsesTransactionFromContext(t *testing.T) {
	ctx := context.Background()
	repo, mock, db := newMockRepo(t)
	tm := NewTransactionManager(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM issues`).
		WithArgs(id).
		WillReturnRows(addIssueRow(sqlmock.NewRows(issueRowColumns), id, false))
	mock.ExpectCommit()

	tx, err := tm.Begin(ctx)
	require.NoError(t, err)

	_, err = repo.Remove(tx.Context(), id)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// rollback after commit is a no-op
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_Rollback(t *testing.T) {
	ctx := context.Background()
	repo, mock, db := newMockRepo(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM issues`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := tm.Begin(ctx)
	require.NoError(t, err)

	_, err = repo.Remove(tx.Context(), uuid.New())
	assert.ErrorIs(t, err, repositories.ErrIssueNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_BeginFailure(t *testing.T) {
	_, mock, db := newMockRepo(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	tx, err := tm.Begin(context.Background())

	assert.Nil(t, tx)
	assert.ErrorContains(t, err, "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutor_WithoutTransaction(t *testing.T) {
	_, _, db := newMockRepo(t)
	assert.Same(t, db.DB, GetExecutor(context.Background(), db))
}

func TestDB_HealthCheckAndSchema(t *testing.T) {
	ctx := context.Background()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer conn.Close()

	db := NewDBFromConn(conn, zap.NewNop())

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	require.NoError(t, db.HealthCheck(ctx))

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS issues`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, db.InitSchema(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
