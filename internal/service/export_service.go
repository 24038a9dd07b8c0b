package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// ExportFormat names a downloadable rendering of a timetable.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

var exportContentTypes = map[ExportFormat]string{
	ExportFormatCSV:  "text/csv; charset=utf-8",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ParseExportFormat resolves a format name; empty selects PDF.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportFormatPDF, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportTask asks a worker to render a timetable into the file store.
type ExportTask struct {
	TimetableID string
	Name        string
	Format      ExportFormat
}

type timetableDocuments interface {
	Load(ctx context.Context, id string) (*TimetableDocument, error)
	Proposal(id string) (*TimetableDocument, error)
}

type exportFileStore interface {
	Put(name string, data []byte) error
	Read(name string) ([]byte, error)
	Sweep(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(resource, name, format string) (string, time.Time, error)
	Verify(token string) (storage.Link, error)
}

type exportQueue interface {
	Submit(task jobs.Task[ExportTask]) error
}

type exportMetrics interface {
	ObserveExport(format string)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(grids []export.Grid) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	LinkTTL   time.Duration
	// MaxRetries matches the worker pool setting; the final attempt records a failure.
	MaxRetries int
}

// ExportService renders timetables to CSV, PDF and XLSX and manages signed download links.
type ExportService struct {
	documents timetableDocuments
	files     exportFileStore
	signer    linkSigner
	queue     exportQueue
	metrics   exportMetrics
	csv       csvRenderer
	pdf       pdfRenderer
	xlsx      xlsxRenderer
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. Files and signer may be nil,
// in which case only direct downloads are available.
func NewExportService(documents timetableDocuments, files exportFileStore, signer linkSigner, metrics exportMetrics, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 24 * time.Hour
	}
	return &ExportService{
		documents: documents,
		files:     files,
		signer:    signer,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		logger:    logger,
		cfg:       cfg,
	}
}

// UseQueue routes link rendering through a worker pool instead of the request goroutine.
func (s *ExportService) UseQueue(queue exportQueue) {
	s.queue = queue
}

// ExportTimetable renders a saved timetable.
func (s *ExportService) ExportTimetable(ctx context.Context, id string, format ExportFormat) (*ExportFile, error) {
	doc, err := s.documents.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Render(doc, format)
}

// ExportProposal renders an unsaved proposal.
func (s *ExportService) ExportProposal(proposalID string, format ExportFormat) (*ExportFile, error) {
	doc, err := s.documents.Proposal(proposalID)
	if err != nil {
		return nil, err
	}
	return s.Render(doc, format)
}

// Render converts a timetable document into the requested format.
func (s *ExportService) Render(doc *TimetableDocument, format ExportFormat) (*ExportFile, error) {
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	in, _, err := scheduler.Normalize(doc.Request)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable request cannot be rendered")
	}

	title := documentTitle(doc)
	var body []byte
	switch format {
	case ExportFormatCSV:
		body, err = s.csv.Render(entriesDataset(doc.Schedule))
	case ExportFormatPDF:
		body, err = s.pdf.Render(entriesDataset(doc.Schedule), title)
	case ExportFormatXLSX:
		body, err = s.xlsx.Render(timetableGrids(title, in, doc.Schedule))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	if s.metrics != nil {
		s.metrics.ObserveExport(string(format))
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s.%s", slugify(title), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// CreateLink schedules rendering of a saved timetable and returns a signed download link.
func (s *ExportService) CreateLink(ctx context.Context, id string, format ExportFormat) (*dto.ExportLinkResponse, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export links are disabled")
	}
	if _, err := s.documents.Load(ctx, id); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%d.%s", id, time.Now().UTC().UnixNano(), format)
	token, expiresAt, err := s.signer.Sign(id, name, string(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	task := jobs.Task[ExportTask]{ID: name, Payload: ExportTask{TimetableID: id, Name: name, Format: format}}
	if s.queue != nil {
		if err := s.queue.Submit(task); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
		}
	} else if err := s.render(ctx, task.Payload); err != nil {
		return nil, err
	}

	return &dto.ExportLinkResponse{
		URL:       fmt.Sprintf("%s/exports/%s", s.apiPrefix(), token),
		Format:    string(format),
		ExpiresAt: expiresAt,
	}, nil
}

// HandleTask renders one queued export into the file store. Client errors and
// the final retry leave a failure marker instead of asking the pool to retry.
func (s *ExportService) HandleTask(ctx context.Context, task jobs.Task[ExportTask]) error {
	err := s.render(ctx, task.Payload)
	if err == nil {
		return nil
	}
	permanent := appErrors.FromError(err).Status < http.StatusInternalServerError
	if !permanent && task.Attempt < s.cfg.MaxRetries {
		return err
	}
	s.recordFailure(task, err)
	return nil
}

func (s *ExportService) render(ctx context.Context, payload ExportTask) error {
	file, err := s.ExportTimetable(ctx, payload.TimetableID, payload.Format)
	if err != nil {
		return err
	}
	if err := s.files.Put(payload.Name, file.Body); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	s.logger.Info("export rendered", zap.String("timetable_id", payload.TimetableID), zap.String("format", string(payload.Format)), zap.Int("bytes", len(file.Body)))
	return nil
}

// OpenLink verifies a signed token and returns the stored export.
func (s *ExportService) OpenLink(token string) (*ExportFile, error) {
	if s.files == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export links are disabled")
	}
	link, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return nil, appErrors.Clone(appErrors.ErrLinkExpired, "")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	body, err := s.files.Read(link.Name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if reason, failErr := s.files.Read(failureMarker(link.Name)); failErr == nil {
				return nil, appErrors.Clone(appErrors.ErrExportFailed, fmt.Sprintf("export failed: %s", reason))
			}
			return nil, appErrors.ErrExportPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export")
	}
	format := ExportFormat(link.Format)
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s.%s", shortID(link.Resource), format),
		ContentType: exportContentTypes[format],
		Body:        body,
	}, nil
}

// recordFailure leaves a marker next to the export name so the link stops reporting pending.
func (s *ExportService) recordFailure(task jobs.Task[ExportTask], cause error) {
	reason := appErrors.FromError(cause).Message
	if err := s.files.Put(failureMarker(task.Payload.Name), []byte(reason)); err != nil {
		s.logger.Error("failed to record export failure", zap.String("name", task.Payload.Name), zap.Error(err))
		return
	}
	s.logger.Warn("export abandoned",
		zap.String("timetable_id", task.Payload.TimetableID),
		zap.Int("attempt", task.Attempt),
		zap.Error(cause),
	)
}

func failureMarker(name string) string {
	return name + ".failed"
}

// Cleanup removes stored exports whose links have expired.
func (s *ExportService) Cleanup() {
	if s.files == nil {
		return
	}
	removed, err := s.files.Sweep(s.cfg.LinkTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
}

func (s *ExportService) apiPrefix() string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix
}

var entryHeaders = []string{"Day", "Time", "Class", "Subject", "Teacher", "Room"}

// entriesDataset flattens a schedule into one row per entry in weekday order.
func entriesDataset(schedule scheduler.WeeklySchedule) export.Dataset {
	data := export.Dataset{Headers: entryHeaders, Rows: make([]map[string]string, 0, schedule.Entries())}
	for _, day := range scheduler.Weekdays {
		for _, entry := range schedule[day] {
			data.Rows = append(data.Rows, map[string]string{
				"Day":     string(day),
				"Time":    entry.Time,
				"Class":   entry.Class,
				"Subject": entry.Subject,
				"Teacher": entry.Teacher,
				"Room":    entry.Room,
			})
		}
	}
	return data
}

// timetableGrids builds an overview sheet followed by one sheet per class,
// each laid out as time slots down and weekdays across.
func timetableGrids(title string, in *scheduler.Input, schedule scheduler.WeeklySchedule) []export.Grid {
	days := in.ScheduledDays()
	columns := make([]string, len(days))
	for i, day := range days {
		columns[i] = string(day)
	}

	cells := make(map[string][]scheduler.ScheduleEntry)
	for _, day := range days {
		for _, entry := range schedule[day] {
			key := string(day) + "\x00" + entry.Time
			cells[key] = append(cells[key], entry)
		}
	}

	overview := export.Grid{Sheet: "All classes", Title: title, Corner: "Time", Columns: columns}
	perClass := make([]export.Grid, len(in.Classes))
	for i, class := range in.Classes {
		perClass[i] = export.Grid{Sheet: class.Name, Title: class.Name, Corner: "Time", Columns: columns}
	}

	for _, slot := range in.TimeSlots {
		if in.IsBreak(slot) {
			overview.Rows = append(overview.Rows, export.GridRow{Label: slot, Break: true})
			for i := range perClass {
				perClass[i].Rows = append(perClass[i].Rows, export.GridRow{Label: slot, Break: true})
			}
			continue
		}
		row := export.GridRow{Label: slot, Cells: make([]string, len(days))}
		classRows := make([]export.GridRow, len(in.Classes))
		for i := range classRows {
			classRows[i] = export.GridRow{Label: slot, Cells: make([]string, len(days))}
		}
		for d, day := range days {
			entries := cells[string(day)+"\x00"+slot]
			lines := make([]string, 0, len(entries))
			for _, entry := range entries {
				lines = append(lines, fmt.Sprintf("%s: %s", entry.Class, overviewCell(entry)))
				for i, class := range in.Classes {
					if class.Name == entry.Class {
						classRows[i].Cells[d] = classCell(entry)
					}
				}
			}
			row.Cells[d] = strings.Join(lines, "\n")
		}
		overview.Rows = append(overview.Rows, row)
		for i := range perClass {
			perClass[i].Rows = append(perClass[i].Rows, classRows[i])
		}
	}

	return append([]export.Grid{overview}, perClass...)
}

func overviewCell(entry scheduler.ScheduleEntry) string {
	if entry.IsFree() {
		return "Free Period"
	}
	return fmt.Sprintf("%s (%s, %s)", entry.Subject, teacherLabel(entry.Teacher), entry.Room)
}

func classCell(entry scheduler.ScheduleEntry) string {
	if entry.IsFree() {
		return "Free Period"
	}
	return strings.Join([]string{entry.Subject, teacherLabel(entry.Teacher), entry.Room}, "\n")
}

func teacherLabel(teacher string) string {
	if teacher == scheduler.Unassigned {
		return "Self Study"
	}
	return teacher
}

func documentTitle(doc *TimetableDocument) string {
	if doc == nil || strings.TrimSpace(doc.Name) == "" {
		return "Weekly Timetable"
	}
	return strings.TrimSpace(doc.Name)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "timetable"
	}
	return slug
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
