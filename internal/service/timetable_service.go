package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableSummary, int, error)
	Delete(ctx context.Context, id string) error
}

type timetableEntryStore interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
	ListByTimetable(ctx context.Context, timetableID string, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error)
	TeacherLoad(ctx context.Context, timetableID string) (map[string]int, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type generationMetrics interface {
	ObserveGeneration(outcome string, duration time.Duration, entries, free int)
	ObserveVerification(valid bool)
}

// TimetableServiceConfig governs generation limits and defaults.
type TimetableServiceConfig struct {
	ProposalTTL      time.Duration
	CacheTTL         time.Duration
	MaxWorkUnits     int64
	MaxConsecutive   int
	AvailabilityMode scheduler.AvailabilityMode
	Persistence      bool
}

// TimetableService generates timetable proposals and manages saved timetables.
type TimetableService struct {
	timetables timetableStore
	entries    timetableEntryStore
	tx         txProvider
	cache      resultCache
	metrics    generationMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
	store      *proposalStore
}

// NewTimetableService wires timetable dependencies. Repositories and the
// transaction provider may be nil when persistence is disabled.
func NewTimetableService(
	timetables timetableStore,
	entries timetableEntryStore,
	tx txProvider,
	cache resultCache,
	metrics generationMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		timetables: timetables,
		entries:    entries,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		store:      newProposalStore(cfg.ProposalTTL),
	}
}

// Generate builds a preview timetable for the request and keeps it as a proposal.
func (s *TimetableService) Generate(ctx context.Context, req scheduler.Request) (*dto.TimetableProposalResponse, error) {
	start := time.Now()
	in, warnings, err := s.prepare(req)
	if err != nil {
		s.observe(outcomeFor(err), time.Since(start), scheduler.Stats{})
		return nil, err
	}

	fingerprint, err := fingerprintInput(in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint request")
	}

	var (
		result scheduler.Result
		cached bool
	)
	key := cache.Key("result", fingerprint)
	if s.cache != nil {
		hit, cacheErr := s.cache.Get(ctx, key, &result)
		if cacheErr != nil {
			s.logger.Warn("timetable cache lookup failed", zap.String("fingerprint", fingerprint), zap.Error(cacheErr))
		}
		cached = hit && result.Schedule != nil
	}
	if !cached {
		result = scheduler.Run(in, scheduler.Options{})
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); cacheErr != nil {
				s.logger.Warn("timetable cache write failed", zap.String("fingerprint", fingerprint), zap.Error(cacheErr))
			}
		}
	}
	// Normalization warnings depend on the raw request, not the fingerprint.
	result.Warnings = append(append([]scheduler.Warning{}, warnings...), result.Warnings...)

	proposal := timetableProposal{
		ProposalID:  uuid.NewString(),
		Fingerprint: fingerprint,
		Request:     req,
		Input:       in,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	outcome := GenerationOutcomeGenerated
	if cached {
		outcome = GenerationOutcomeCached
	}
	s.observe(outcome, time.Since(start), result.Stats)
	s.logger.Info("timetable generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("fingerprint", fingerprint),
		zap.Bool("cached", cached),
		zap.Int("entries", result.Stats.Entries),
		zap.Int("free", result.Stats.Free),
		zap.Int("warnings", len(result.Warnings)),
	)

	return &dto.TimetableProposalResponse{
		Mode:        dto.GenerationModePreview,
		ProposalID:  proposal.ProposalID,
		Fingerprint: fingerprint,
		Cached:      cached,
		Timetable:   result.Schedule,
		Warnings:    result.Warnings,
		Stats:       result.Stats,
		ExpiresAt:   proposal.RequestedAt.Add(s.cfg.ProposalTTL),
	}, nil
}

// GenerateRaw decodes the string-encoded form payload and generates from it.
func (s *TimetableService) GenerateRaw(ctx context.Context, raw dto.GenerateRawRequest) (*dto.TimetableProposalResponse, error) {
	req, err := scheduler.ParseRaw(raw.RawRequest)
	if err != nil {
		s.observe(GenerationOutcomeInvalid, 0, scheduler.Stats{})
		return nil, translateSchedulerError(err)
	}
	req.AvailabilityMode = raw.AvailabilityMode
	req.MaxConsecutive = raw.MaxConsecutive
	return s.Generate(ctx, req)
}

// Verify checks an arbitrary schedule of the common output shape against the request.
func (s *TimetableService) Verify(ctx context.Context, req dto.VerifyTimetableRequest) (*dto.VerifyTimetableResponse, error) {
	if req.Timetable == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request: timetable is required")
	}
	in, warnings, err := s.prepare(req.Request)
	if err != nil {
		return nil, err
	}
	violations := scheduler.Verify(in, req.Timetable)
	if violations == nil {
		violations = []scheduler.Violation{}
	}
	if warnings == nil {
		warnings = []scheduler.Warning{}
	}
	valid := len(violations) == 0
	if s.metrics != nil {
		s.metrics.ObserveVerification(valid)
	}
	if !valid {
		s.logger.Info("timetable verification failed", zap.Int("violations", len(violations)), zap.String("first", violations[0].Code))
	}
	return &dto.VerifyTimetableResponse{Valid: valid, Violations: violations, Warnings: warnings}, nil
}

// Save persists a proposal and its entries in a single transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest, actor *models.UserInfo) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	if err := s.requirePersistence(); err != nil {
		return "", err
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.ErrProposalExpired
	}

	record, err := buildTimetableRecord(proposal, strings.TrimSpace(req.Name), actor)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}
	if err = s.entries.InsertBatch(ctx, tx, buildEntryRows(record.ID, proposal.Input, proposal.Result.Schedule)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable entries")
		return "", err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	s.logger.Info("timetable saved", zap.String("timetable_id", record.ID), zap.String("proposal_id", req.ProposalID))
	return record.ID, nil
}

// List returns saved timetables with pagination metadata.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableListQuery) ([]models.TimetableSummary, *models.Pagination, error) {
	if err := s.requirePersistence(); err != nil {
		return nil, nil, err
	}
	filter := models.TimetableFilter{
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	items, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if items == nil {
		items = []models.TimetableSummary{}
	}
	page, size := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a saved timetable in the output shape together with its teacher load.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableDetailResponse, error) {
	doc, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	load, err := s.entries.TeacherLoad(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher hours")
	}
	record := doc.Record
	return &dto.TimetableDetailResponse{
		ID:             record.ID,
		Name:           record.Name,
		Fingerprint:    record.Fingerprint,
		Source:         record.Source,
		SpecialDemands: record.SpecialDemands,
		EntryCount:     record.EntryCount,
		FreeCount:      record.FreeCount,
		CreatedBy:      record.CreatedBy,
		CreatedAt:      record.CreatedAt,
		Timetable:      doc.Schedule,
		Warnings:       json.RawMessage(record.Warnings),
		Stats:          json.RawMessage(record.Stats),
		TeacherLoad:    load,
	}, nil
}

// Entries lists the stored cells of a timetable.
func (s *TimetableService) Entries(ctx context.Context, id string, query dto.TimetableEntriesQuery) ([]models.TimetableEntry, error) {
	if _, err := s.findRecord(ctx, id); err != nil {
		return nil, err
	}
	filter := models.TimetableEntryFilter{
		ClassName: strings.TrimSpace(query.Class),
		Teacher:   strings.TrimSpace(query.Teacher),
		Room:      strings.TrimSpace(query.Room),
		FreeOnly:  query.Free,
	}
	if query.Day != "" {
		day, ok := scheduler.ParseDay(query.Day)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day %q is not a weekday", query.Day))
		}
		filter.Day = string(day)
	}
	entries, err := s.entries.ListByTimetable(ctx, id, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	if entries == nil {
		entries = []models.TimetableEntry{}
	}
	return entries, nil
}

// Delete removes a saved timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.requirePersistence(); err != nil {
		return err
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.logger.Info("timetable deleted", zap.String("timetable_id", id))
	return nil
}

// TimetableDocument is a schedule with the slot layout needed to render it.
type TimetableDocument struct {
	ID       string
	Name     string
	Request  scheduler.Request
	Schedule scheduler.WeeklySchedule
	Record   *models.Timetable
}

// Load decodes a saved timetable into a document.
func (s *TimetableService) Load(ctx context.Context, id string) (*TimetableDocument, error) {
	record, err := s.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	var req scheduler.Request
	if err := json.Unmarshal(record.Request, &req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable request is corrupt")
	}
	var out scheduler.Output
	if err := json.Unmarshal(record.Result, &out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored timetable result is corrupt")
	}
	return &TimetableDocument{ID: record.ID, Name: record.Name, Request: req, Schedule: out.Timetable, Record: record}, nil
}

// Proposal returns an unsaved proposal as a document.
func (s *TimetableService) Proposal(id string) (*TimetableDocument, error) {
	proposal, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.ErrProposalExpired
	}
	return &TimetableDocument{ID: proposal.ProposalID, Name: "Weekly Timetable", Request: proposal.Request, Schedule: proposal.Result.Schedule}, nil
}

func (s *TimetableService) findRecord(ctx context.Context, id string) (*models.Timetable, error) {
	if err := s.requirePersistence(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return record, nil
}

func (s *TimetableService) requirePersistence() error {
	if !s.cfg.Persistence || s.timetables == nil || s.entries == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable persistence is disabled")
	}
	return nil
}

// prepare normalizes the request, fills configured defaults and enforces the work ceiling.
func (s *TimetableService) prepare(req scheduler.Request) (*scheduler.Input, []scheduler.Warning, error) {
	in, warnings, err := scheduler.Normalize(req)
	if err != nil {
		return nil, nil, translateSchedulerError(err)
	}
	if in.MaxConsecutive <= 0 {
		in.MaxConsecutive = s.cfg.MaxConsecutive
	}
	if in.AvailabilityMode == "" {
		in.AvailabilityMode = s.cfg.AvailabilityMode
	}
	if s.cfg.MaxWorkUnits > 0 {
		if units := in.WorkUnits(); units > s.cfg.MaxWorkUnits {
			return nil, nil, appErrors.Clone(appErrors.ErrWorkLimit, fmt.Sprintf("request needs %d work units, limit is %d", units, s.cfg.MaxWorkUnits))
		}
	}
	return in, warnings, nil
}

func (s *TimetableService) observe(outcome string, duration time.Duration, stats scheduler.Stats) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(outcome, duration, stats.Entries, stats.Free)
	}
}

func translateSchedulerError(err error) error {
	if ve, ok := scheduler.AsValidationError(err); ok {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, ve.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare timetable request")
}

func outcomeFor(err error) string {
	if appErrors.IsCode(err, appErrors.ErrWorkLimit.Code) {
		return GenerationOutcomeRejected
	}
	return GenerationOutcomeInvalid
}

// fingerprintInput hashes the normalized input so that equivalent requests
// share cached results regardless of whitespace or duplicate list items.
func fingerprintInput(in *scheduler.Input) (string, error) {
	payload, err := json.Marshal(struct {
		TimeSlots         []string                             `json:"timeSlots"`
		Breaks            []string                             `json:"breaks"`
		Classes           []scheduler.ClassGroup               `json:"classes"`
		Teachers          []scheduler.Teacher                  `json:"teachers"`
		Rooms             []scheduler.Room                     `json:"rooms"`
		Holidays          []scheduler.Day                      `json:"holidays"`
		SubjectCategories map[string]scheduler.SubjectCategory `json:"subjectCategories"`
		AvailabilityMode  scheduler.AvailabilityMode           `json:"availabilityMode"`
		MaxConsecutive    int                                  `json:"maxConsecutive"`
	}{
		TimeSlots:         in.TimeSlots,
		Breaks:            in.Breaks,
		Classes:           in.Classes,
		Teachers:          in.Teachers,
		Rooms:             in.Rooms,
		Holidays:          in.Holidays,
		SubjectCategories: in.SubjectCategories,
		AvailabilityMode:  in.AvailabilityMode,
		MaxConsecutive:    in.MaxConsecutive,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func buildTimetableRecord(proposal timetableProposal, name string, actor *models.UserInfo) (*models.Timetable, error) {
	request, err := json.Marshal(proposal.Request)
	if err != nil {
		return nil, err
	}
	result, err := json.Marshal(proposal.Result.Output())
	if err != nil {
		return nil, err
	}
	warnings, err := json.Marshal(proposal.Result.Warnings)
	if err != nil {
		return nil, err
	}
	stats, err := json.Marshal(proposal.Result.Stats)
	if err != nil {
		return nil, err
	}
	record := &models.Timetable{
		ID:             uuid.NewString(),
		Name:           name,
		Fingerprint:    proposal.Fingerprint,
		Source:         models.TimetableSourceOffline,
		Request:        types.JSONText(request),
		Result:         types.JSONText(result),
		Warnings:       types.JSONText(warnings),
		Stats:          types.JSONText(stats),
		EntryCount:     proposal.Result.Stats.Entries,
		FreeCount:      proposal.Result.Stats.Free,
		SpecialDemands: proposal.Request.SpecialDemands,
	}
	if actor != nil && actor.ID != "" {
		createdBy := actor.ID
		record.CreatedBy = &createdBy
	}
	return record, nil
}

func buildEntryRows(timetableID string, in *scheduler.Input, schedule scheduler.WeeklySchedule) []models.TimetableEntry {
	rows := make([]models.TimetableEntry, 0, schedule.Entries())
	for _, day := range scheduler.Weekdays {
		for _, entry := range schedule[day] {
			slotIdx := -1
			if in != nil {
				if idx, ok := in.SlotIndex(entry.Time); ok {
					slotIdx = idx
				}
			}
			rows = append(rows, models.TimetableEntry{
				TimetableID: timetableID,
				DayOfWeek:   string(day),
				DayIndex:    day.Index(),
				SlotIndex:   slotIdx,
				TimeSlot:    entry.Time,
				ClassName:   entry.Class,
				Subject:     entry.Subject,
				Teacher:     entry.Teacher,
				Room:        entry.Room,
				IsFree:      entry.IsFree(),
			})
		}
	}
	return rows
}

// --- Proposal store ---

type timetableProposal struct {
	ProposalID  string
	Fingerprint string
	Request     scheduler.Request
	Input       *scheduler.Input
	Result      scheduler.Result
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *proposalStore) sweepLocked() {
	for id, proposal := range s.items {
		if time.Since(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
