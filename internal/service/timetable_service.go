package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/timetable"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/export"
	"github.com/noah-isme/study-planner-api/pkg/jobs"
)

const (
	examDateLayout       = "2006-01-02"
	timetableCachePrefix = "timetable"
	defaultPlanPageSize  = 20
	maxPlanPageSize      = 100
)

type subjectStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
	MarkScheduled(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type studyPlanStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, plan *models.StudyPlan) error
	List(ctx context.Context, limit, offset int) ([]models.StudyPlan, int, error)
	FindByID(ctx context.Context, id string) (*models.StudyPlan, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type studyPlanSessionStore interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudyPlanSession) error
	ListByPlan(ctx context.Context, planID string) ([]models.StudyPlanSession, error)
	DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type taskQueue interface {
	Enqueue(job jobs.Job) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableConfig governs request defaults and proposal retention.
type TimetableConfig struct {
	ProposalTTL        time.Duration
	DefaultHoursPerDay float64
	DefaultDaysCount   int
	DefaultBlocks      []string
	Granularity        int
	MaxDaysCount       int
	CacheTTL           time.Duration
	Location           *time.Location
}

// TimetableServiceParams groups constructor dependencies.
type TimetableServiceParams struct {
	Subjects  subjectStore
	Plans     studyPlanStore
	Sessions  studyPlanSessionStore
	Tx        txProvider
	Cache     *CacheService
	Metrics   *MetricsService
	Tasks     taskQueue
	Validator *validator.Validate
	Logger    *zap.Logger
	CSV       csvRenderer
	PDF       pdfRenderer
	Config    TimetableConfig
}

// TimetableService generates study timetables and manages the plans saved from them.
type TimetableService struct {
	subjects  subjectStore
	plans     studyPlanStore
	sessions  studyPlanSessionStore
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	tasks     taskQueue
	validator *validator.Validate
	logger    *zap.Logger
	csv       csvRenderer
	pdf       pdfRenderer
	engine    *timetable.Generator
	store     *proposalStore
	now       func() time.Time
	cfg       TimetableConfig
}

// NewTimetableService wires the service and fills unset configuration with defaults.
func NewTimetableService(params TimetableServiceParams) *TimetableService {
	cfg := params.Config
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.DefaultHoursPerDay <= 0 {
		cfg.DefaultHoursPerDay = 4
	}
	if cfg.DefaultDaysCount <= 0 {
		cfg.DefaultDaysCount = 7
	}
	if len(cfg.DefaultBlocks) == 0 {
		cfg.DefaultBlocks = timetable.DefaultBlockNames
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = timetable.DefaultGranularity
	}
	if cfg.MaxDaysCount <= 0 {
		cfg.MaxDaysCount = 366
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	svc := &TimetableService{
		subjects:  params.Subjects,
		plans:     params.Plans,
		sessions:  params.Sessions,
		tx:        params.Tx,
		cache:     params.Cache,
		metrics:   params.Metrics,
		tasks:     params.Tasks,
		validator: validate,
		logger:    logger,
		csv:       csv,
		pdf:       pdf,
		engine:    timetable.NewGenerator(timetable.Options{Granularity: cfg.Granularity}),
		now:       time.Now,
		cfg:       cfg,
	}
	svc.store = newProposalStore(cfg.ProposalTTL, func() time.Time { return svc.now() })
	return svc
}

// timetableCacheKey is the normalized engine input a cached schedule was produced from.
type timetableCacheKey struct {
	Subjects    []timetable.Subject `json:"subjects"`
	HoursPerDay float64             `json:"hours_per_day"`
	Blocks      []string            `json:"blocks"`
	ExamDate    string              `json:"exam_date,omitempty"`
	DaysCount   int                 `json:"days_count"`
	Today       string              `json:"today"`
	Spread      bool                `json:"spread"`
}

// Generate validates the request, resolves subjects and runs the engine. The resulting schedule
// is kept as a proposal that Save can persist until it expires.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveGeneration("invalid", 0, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, appErrors.ErrInvalidRequest.Status, "invalid timetable request")
	}

	engineReq, err := s.buildEngineRequest(ctx, req)
	if err != nil {
		s.metrics.ObserveGeneration("invalid", 0, 0, 0)
		return nil, err
	}

	key := timetableCacheKey{
		Subjects:    engineReq.Subjects,
		HoursPerDay: engineReq.HoursPerDay,
		Blocks:      engineReq.PreferredBlocks,
		DaysCount:   engineReq.DaysCount,
		Today:       engineReq.Today.Format(examDateLayout),
		Spread:      engineReq.Spread,
	}
	if engineReq.ExamDate != nil {
		key.ExamDate = engineReq.ExamDate.Format(examDateLayout)
	}
	cacheKey, keyErr := s.cache.Key(timetableCachePrefix, key)

	var schedule timetable.Schedule
	cached := false
	if keyErr == nil && s.cache.Enabled() {
		if hit, _ := s.cache.Get(ctx, cacheKey, &schedule); hit {
			cached = true
			s.metrics.ObserveGeneration("cached", len(schedule.Sessions), schedule.UnplacedMinutes, 0)
		}
	}

	if !cached {
		start := time.Now()
		schedule, err = s.engine.Generate(engineReq)
		if err != nil {
			s.metrics.ObserveGeneration("invalid", 0, 0, 0)
			return nil, err
		}
		outcome := "generated"
		if len(schedule.Sessions) == 0 {
			outcome = "empty"
		}
		s.metrics.ObserveGeneration(outcome, len(schedule.Sessions), schedule.UnplacedMinutes, time.Since(start))
		if keyErr == nil {
			_ = s.cache.Set(ctx, cacheKey, schedule, s.cfg.CacheTTL)
		}
	}

	proposal := timetableProposal{
		ID:          uuid.NewString(),
		StartDate:   dateOnly(engineReq.Today),
		HoursPerDay: engineReq.HoursPerDay,
		Blocks:      engineReq.PreferredBlocks,
		Spread:      engineReq.Spread,
		Schedule:    schedule,
		RequestedAt: s.now(),
	}
	s.store.Save(proposal)

	s.logger.Info("timetable generated",
		zap.String("proposal_id", proposal.ID),
		zap.Int("subjects", len(engineReq.Subjects)),
		zap.Int("sessions", len(schedule.Sessions)),
		zap.Int("horizon_days", schedule.HorizonDays),
		zap.Int("unplaced_minutes", schedule.UnplacedMinutes),
		zap.Bool("cached", cached),
	)

	return &dto.GenerateTimetableResponse{ProposalID: proposal.ID, Cached: cached, Schedule: schedule}, nil
}

func (s *TimetableService) buildEngineRequest(ctx context.Context, req dto.GenerateTimetableRequest) (timetable.Request, error) {
	hours := s.cfg.DefaultHoursPerDay
	if req.HoursPerDay != nil {
		hours = *req.HoursPerDay
	}
	days := s.cfg.DefaultDaysCount
	if req.DaysCount != nil {
		days = *req.DaysCount
	}
	if days > s.cfg.MaxDaysCount {
		return timetable.Request{}, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("days_count must not exceed %d", s.cfg.MaxDaysCount))
	}
	blocks := req.PreferredBlocks
	if len(blocks) == 0 {
		blocks = s.cfg.DefaultBlocks
	}
	resolved, err := timetable.ResolveBlocks(blocks)
	if err != nil {
		return timetable.Request{}, err
	}
	blockNames := make([]string, len(resolved))
	for i, block := range resolved {
		blockNames[i] = block.Name
	}

	var examDate *time.Time
	if req.ExamDate != nil && strings.TrimSpace(*req.ExamDate) != "" {
		parsed, err := time.ParseInLocation(examDateLayout, strings.TrimSpace(*req.ExamDate), s.cfg.Location)
		if err != nil {
			return timetable.Request{}, appErrors.Clone(appErrors.ErrInvalidRequest, "exam_date must use YYYY-MM-DD")
		}
		examDate = &parsed
	}

	subjects, err := s.resolveSubjects(ctx, req.SubjectIDs)
	if err != nil {
		return timetable.Request{}, err
	}

	return timetable.Request{
		Subjects:        subjects,
		HoursPerDay:     hours,
		PreferredBlocks: blockNames,
		ExamDate:        examDate,
		DaysCount:       days,
		Today:           s.now().In(s.cfg.Location),
		Spread:          req.Spread,
	}, nil
}

// resolveSubjects loads snapshots in request order. Any unknown id rejects the whole request.
func (s *TimetableService) resolveSubjects(ctx context.Context, ids []string) ([]timetable.Subject, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "subject_ids must not be empty")
	}

	queryStart := time.Now()
	rows, err := s.subjects.ListByIDs(ctx, unique)
	s.metrics.ObserveDBQuery("subjects_outstanding", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	byID := make(map[string]models.Subject, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	subjects := make([]timetable.Subject, 0, len(unique))
	var missing []string
	for _, id := range unique {
		row, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		subjects = append(subjects, timetable.Subject{
			ID:                 row.ID,
			Name:               row.Name,
			Color:              row.Color,
			OutstandingMinutes: row.OutstandingMinutes,
		})
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("unknown subject ids: %s", strings.Join(missing, ", ")))
	}
	return subjects, nil
}

// Save persists a live proposal as a study plan with its sessions in one transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveStudyPlanRequest) (*models.StudyPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save study plan payload")
	}
	proposal, ok := s.store.Take(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	committed := false
	defer func() {
		if !committed {
			s.store.Save(proposal)
		}
	}()
	if len(proposal.Schedule.Sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal contains no sessions")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, err := json.Marshal(map[string]any{
		"requested_minutes": proposal.Schedule.RequestedMinutes,
		"scheduled_minutes": proposal.Schedule.ScheduledMinutes,
		"unplaced_minutes":  proposal.Schedule.UnplacedMinutes,
		"subjects_covered":  proposal.Schedule.SubjectsCovered,
		"coverage":          proposal.Schedule.Coverage,
		"hours_per_day":     proposal.HoursPerDay,
		"blocks":            proposal.Blocks,
		"spread":            proposal.Spread,
		"generated_at":      proposal.RequestedAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode study plan metadata")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Study plan from " + proposal.StartDate.Format(examDateLayout)
	}
	plan := &models.StudyPlan{
		Title:       title,
		Status:      models.StudyPlanStatusActive,
		StartDate:   proposal.StartDate,
		HorizonDays: proposal.Schedule.HorizonDays,
		TotalHours:  proposal.Schedule.TotalHours,
		Meta:        types.JSONText(metaBytes),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.plans.Create(ctx, tx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study plan")
	}

	rows := make([]models.StudyPlanSession, 0, len(proposal.Schedule.Sessions))
	for _, session := range proposal.Schedule.Sessions {
		rows = append(rows, models.StudyPlanSession{
			StudyPlanID:     plan.ID,
			SubjectID:       session.SubjectID,
			Title:           session.Title,
			SessionType:     string(session.SessionType),
			DayIndex:        session.DayIndex,
			ScheduledDate:   proposal.StartDate.AddDate(0, 0, session.DayIndex),
			StartTime:       session.StartTime,
			Block:           session.Block,
			DurationMinutes: session.DurationMinutes,
		})
	}
	if err = s.sessions.InsertBatch(ctx, tx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist study plan sessions")
	}

	if covered := fullyCoveredSubjects(proposal.Schedule); len(covered) > 0 {
		if err = s.subjects.MarkScheduled(ctx, tx, covered); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark analyses scheduled")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit study plan transaction")
	}

	committed = true
	s.metrics.RecordPlanSaved()
	s.invalidateSchedules(ctx)
	s.logger.Info("study plan saved", zap.String("plan_id", plan.ID), zap.Int("sessions", len(rows)))
	return plan, nil
}

// invalidateSchedules drops cached schedules, whose outstanding minutes are stale once a plan is saved.
// The work goes to the task queue when one is configured and runs inline otherwise.
func (s *TimetableService) invalidateSchedules(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	pattern := timetableCachePrefix + ":*"
	if s.tasks != nil {
		err := s.tasks.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobCacheInvalidate, Payload: pattern})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue cache invalidation failed, invalidating inline", zap.Error(err))
	}
	_ = s.cache.Invalidate(ctx, pattern)
}

// fullyCoveredSubjects lists subjects whose outstanding time was placed in full.
func fullyCoveredSubjects(schedule timetable.Schedule) []string {
	var ids []string
	for _, c := range schedule.Coverage {
		if c.OutstandingMinutes > 0 && c.ScheduledMinutes >= c.OutstandingMinutes {
			ids = append(ids, c.SubjectID)
		}
	}
	return ids
}

// List returns a page of saved study plans.
func (s *TimetableService) List(ctx context.Context, query dto.StudyPlanQuery) ([]models.StudyPlan, *models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultPlanPageSize
	}
	if size > maxPlanPageSize {
		size = maxPlanPageSize
	}
	queryStart := time.Now()
	plans, total, err := s.plans.List(ctx, size, (page-1)*size)
	s.metrics.ObserveDBQuery("study_plans_list", time.Since(queryStart))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study plans")
	}
	return plans, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetSessions returns the sessions of a saved plan.
func (s *TimetableService) GetSessions(ctx context.Context, planID string) ([]models.StudyPlanSession, error) {
	if _, err := s.findPlan(ctx, planID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study plan sessions")
	}
	return sessions, nil
}

// Delete removes a saved plan and its sessions.
func (s *TimetableService) Delete(ctx context.Context, planID string) (err error) {
	if _, err = s.findPlan(ctx, planID); err != nil {
		return err
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sessions.DeleteByPlan(ctx, tx, planID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study plan sessions")
	}
	if err = s.plans.Delete(ctx, tx, planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "study plan not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study plan")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit study plan deletion")
	}
	return nil
}

// ExportFile is a rendered study plan document.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

var studyPlanExportHeaders = []string{"Date", "Day", "Start", "End", "Block", "Session", "Type", "Minutes"}

// Export renders a saved plan as csv or pdf.
func (s *TimetableService) Export(ctx context.Context, planID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrInvalidRequest, "format must be csv or pdf")
	}
	plan, err := s.findPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study plan sessions")
	}

	dataset := buildStudyPlanDataset(sessions)
	dataset.Summary = []export.Field{
		{Label: "Start date", Value: plan.StartDate.Format(examDateLayout)},
		{Label: "Horizon", Value: fmt.Sprintf("%d days", plan.HorizonDays)},
		{Label: "Total hours", Value: strconv.FormatFloat(plan.TotalHours, 'f', 1, 64)},
		{Label: "Sessions", Value: strconv.Itoa(len(sessions))},
	}
	file := &ExportFile{Filename: fmt.Sprintf("study-plan-%s.%s", plan.StartDate.Format(examDateLayout), format)}
	switch format {
	case "pdf":
		file.ContentType = "application/pdf"
		file.Content, err = s.pdf.Render(dataset, plan.Title)
	default:
		file.ContentType = "text/csv"
		file.Content, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render study plan")
	}
	return file, nil
}

func buildStudyPlanDataset(sessions []models.StudyPlanSession) export.Dataset {
	sorted := make([]models.StudyPlanSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayIndex == sorted[j].DayIndex {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].DayIndex < sorted[j].DayIndex
	})

	rows := make([]map[string]string, 0, len(sorted))
	for _, session := range sorted {
		rows = append(rows, map[string]string{
			"Date":    session.ScheduledDate.Format(examDateLayout),
			"Day":     strconv.Itoa(session.DayIndex + 1),
			"Start":   session.StartTime,
			"End":     addMinutes(session.StartTime, session.DurationMinutes),
			"Block":   session.Block,
			"Session": session.Title,
			"Type":    session.SessionType,
			"Minutes": strconv.Itoa(session.DurationMinutes),
		})
	}
	return export.Dataset{Headers: studyPlanExportHeaders, Rows: rows}
}

// addMinutes offsets an HH:MM clock value. Malformed input is returned unchanged.
func addMinutes(clock string, minutes int) string {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return parsed.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}

func (s *TimetableService) findPlan(ctx context.Context, planID string) (*models.StudyPlan, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "study plan id is required")
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plan")
	}
	return plan, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// --- Proposal store ---

type timetableProposal struct {
	ID          string
	StartDate   time.Time
	HoursPerDay float64
	Blocks      []string
	Spread      bool
	Schedule    timetable.Schedule
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration, now func() time.Time) *proposalStore {
	if now == nil {
		now = time.Now
	}
	return &proposalStore{
		ttl:   ttl,
		now:   now,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.items[proposal.ID] = proposal
}

// Take removes and returns a live proposal, so concurrent saves of one proposal see it once.
func (s *proposalStore) Take(id string) (timetableProposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.items[id]
	if !ok {
		return timetableProposal{}, false
	}
	delete(s.items, id)
	if s.now().Sub(proposal.RequestedAt) > s.ttl {
		return timetableProposal{}, false
	}
	return proposal, true
}

// evictExpired must be called with mu held.
func (s *proposalStore) evictExpired() {
	now := s.now()
	for id, proposal := range s.items {
		if now.Sub(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
