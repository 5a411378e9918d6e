package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubjectRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "color", "outstanding_minutes"}).
		AddRow("sub-1", "Algebra", "#f00", 180).
		AddRow("sub-2", "Biology", "", 0)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN material_analyses m ON m.subject_id = s.id AND m.scheduled = FALSE WHERE s.id IN (?, ?) GROUP BY s.id")).
		WithArgs("sub-1", "sub-2").
		WillReturnRows(rows)

	subjects, err := repo.ListByIDs(context.Background(), []string{"sub-1", "sub-2"})
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Algebra", subjects[0].Name)
	assert.Equal(t, 180, subjects[0].OutstandingMinutes)
	assert.Zero(t, subjects[1].OutstandingMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	subjects, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, subjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryMarkScheduled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE material_analyses SET scheduled = TRUE WHERE scheduled = FALSE AND subject_id IN (?)")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.MarkScheduled(context.Background(), nil, []string{"sub-1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
