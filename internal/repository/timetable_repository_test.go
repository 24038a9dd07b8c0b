package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetables")).
		WithArgs(sqlmock.AnyArg(), "Week 12", "abc", string(models.TimetableSourceOffline), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 30, 2, "", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Timetable{
		Name:        "Week 12",
		Fingerprint: "abc",
		Request:     types.JSONText(`{}`),
		Result:      types.JSONText(`{"timetable":{}}`),
		EntryCount:  30,
		FreeCount:   2,
	}
	require.NoError(t, repo.Create(context.Background(), nil, payload))
	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, types.JSONText(`[]`), payload.Warnings)
	assert.False(t, payload.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryCreateRequiresName(t *testing.T) {
	db, _, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	err := NewTimetableRepository(db).Create(context.Background(), nil, &models.Timetable{Name: "  "})
	assert.Error(t, err)
}

func TestTimetableRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "fingerprint", "source", "entry_count", "free_count", "created_by", "created_at"}).
		AddRow("tt-1", "Week 12", "abc", "offline", 30, 0, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, fingerprint, source, entry_count, free_count, created_by, created_at\nFROM timetables WHERE 1=1 AND (LOWER(name) LIKE $1 OR fingerprint LIKE $1) ORDER BY name ASC LIMIT 20 OFFSET 20")).
		WithArgs("%week%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetables WHERE 1=1 AND (LOWER(name) LIKE $1 OR fingerprint LIKE $1)")).
		WithArgs("%week%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	items, total, err := repo.List(context.Background(), models.TimetableFilter{Search: "Week", Page: 2, PageSize: 500, SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 21, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindLatestByFingerprint(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetables WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("abc").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLatestByFingerprint(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetables WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "Monday", 0, 0, "09:00-10:00", "Class 4A", "Math", "Mr. Rao", "Room 101", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
		WithArgs(sqlmock.AnyArg(), "tt-1", "Monday", 0, 1, "10:00-11:00", "Class 4A", "Free", "-", "-", true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entries := []models.TimetableEntry{
		{TimetableID: "tt-1", DayOfWeek: "Monday", TimeSlot: "09:00-10:00", ClassName: "Class 4A", Subject: "Math", Teacher: "Mr. Rao", Room: "Room 101"},
		{TimetableID: "tt-1", DayOfWeek: "Monday", SlotIndex: 1, TimeSlot: "10:00-11:00", ClassName: "Class 4A", Subject: "Free", Teacher: "-", Room: "-", IsFree: true},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, entries))
	assert.NotEmpty(t, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, repo.InsertBatch(context.Background(), nil, []models.TimetableEntry{{DayOfWeek: "Monday"}}))
}

func TestTimetableEntryRepositoryListByTimetableFilters(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	free := false
	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day_of_week", "day_index", "slot_index", "time_slot", "class_name", "subject", "teacher", "room", "is_free"}).
		AddRow("e-1", "tt-1", "Tuesday", 1, 0, "09:00-10:00", "Class 4A", "Math", "Mr. Rao", "Room 101", false)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE timetable_id = $1 AND day_of_week = $2 AND teacher = $3 AND is_free = $4 ORDER BY day_index ASC, slot_index ASC, class_name ASC")).
		WithArgs("tt-1", "Tuesday", "Mr. Rao", false).
		WillReturnRows(rows)

	entries, err := repo.ListByTimetable(context.Background(), "tt-1", models.TimetableEntryFilter{Day: "Tuesday", Teacher: "Mr. Rao", FreeOnly: &free})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Math", entries[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryTeacherLoad(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher, COUNT(*) AS periods FROM timetable_entries")).
		WithArgs("tt-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher", "periods"}).AddRow("Mr. Rao", 12).AddRow("Ms. Iyer", 9))

	load, err := repo.TeacherLoad(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Mr. Rao": 12, "Ms. Iyer": 9}, load)
	assert.NoError(t, mock.ExpectationsWereMet())
}
