package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimetableEntryRepository manages the per-cell rows of stored timetables.
type TimetableEntryRepository struct {
	db *sqlx.DB
}

// NewTimetableEntryRepository builds repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{db: db}
}

func (r *TimetableEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores entries for a timetable. Re-inserting a cell replaces it.
func (r *TimetableEntryRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO timetable_entries (id, timetable_id, day_of_week, day_index, slot_index, time_slot, class_name, subject, teacher, room, is_free)
VALUES (:id, :timetable_id, :day_of_week, :day_index, :slot_index, :time_slot, :class_name, :subject, :teacher, :room, :is_free)
ON CONFLICT (timetable_id, day_of_week, time_slot, class_name) DO UPDATE
SET subject = EXCLUDED.subject,
    teacher = EXCLUDED.teacher,
    room = EXCLUDED.room,
    is_free = EXCLUDED.is_free`

	for i := range entries {
		entry := &entries[i]
		if entry.TimetableID == "" {
			return fmt.Errorf("timetable_id is required")
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}
	return nil
}

// ListByTimetable returns entries in day then slot order.
func (r *TimetableEntryRepository) ListByTimetable(ctx context.Context, timetableID string, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error) {
	args := []interface{}{timetableID}
	conditions := []string{"timetable_id = $1"}

	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.ClassName != "" {
		conditions = append(conditions, fmt.Sprintf("class_name = $%d", len(args)+1))
		args = append(args, filter.ClassName)
	}
	if filter.Teacher != "" {
		conditions = append(conditions, fmt.Sprintf("teacher = $%d", len(args)+1))
		args = append(args, filter.Teacher)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.FreeOnly != nil {
		conditions = append(conditions, fmt.Sprintf("is_free = $%d", len(args)+1))
		args = append(args, *filter.FreeOnly)
	}

	query := fmt.Sprintf(`SELECT id, timetable_id, day_of_week, day_index, slot_index, time_slot, class_name, subject, teacher, room, is_free
FROM timetable_entries WHERE %s ORDER BY day_index ASC, slot_index ASC, class_name ASC`, strings.Join(conditions, " AND "))

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// TeacherLoad returns the number of filled periods per teacher for a timetable.
func (r *TimetableEntryRepository) TeacherLoad(ctx context.Context, timetableID string) (map[string]int, error) {
	const query = `SELECT teacher, COUNT(*) AS periods FROM timetable_entries
WHERE timetable_id = $1 AND is_free = FALSE GROUP BY teacher ORDER BY teacher ASC`
	var rows []struct {
		Teacher string `db:"teacher"`
		Periods int    `db:"periods"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, timetableID); err != nil {
		return nil, fmt.Errorf("timetable teacher load: %w", err)
	}
	load := make(map[string]int, len(rows))
	for _, row := range rows {
		load[row.Teacher] = row.Periods
	}
	return load, nil
}
