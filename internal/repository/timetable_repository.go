package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

const timetableColumns = `id, name, fingerprint, source, request, result, warnings, stats, entry_count, free_count, special_demands, created_by, created_at`

// TimetableRepository persists accepted timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a timetable header row.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if strings.TrimSpace(timetable.Name) == "" {
		return fmt.Errorf("timetable name is required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Source == "" {
		timetable.Source = models.TimetableSourceOffline
	}
	if len(timetable.Warnings) == 0 {
		timetable.Warnings = types.JSONText(`[]`)
	}
	if len(timetable.Stats) == 0 {
		timetable.Stats = types.JSONText(`{}`)
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetables (id, name, fingerprint, source, request, result, warnings, stats, entry_count, free_count, special_demands, created_by, created_at)
VALUES (:id, :name, :fingerprint, :source, :request, :result, :warnings, :stats, :entry_count, :free_count, :special_demands, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// FindByID loads a stored timetable including its payloads.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE id = $1`, timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindLatestByFingerprint returns the newest timetable generated from an identical request.
func (r *TimetableRepository) FindLatestByFingerprint(ctx context.Context, fingerprint string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`, timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, fingerprint); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// List returns timetable summaries with pagination metadata.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error) {
	base := "FROM timetables"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR fingerprint LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":        "name",
		"created_at":  "created_at",
		"entry_count": "entry_count",
		"free_count":  "free_count",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, fingerprint, source, entry_count, free_count, created_by, created_at
%s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var items []models.TimetableSummary
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}
	return items, total, nil
}

// Delete removes a timetable; its entries cascade.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
