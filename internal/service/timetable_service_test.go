package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/jobs"
)

var plannerNow = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

type subjectStoreStub struct {
	subjects map[string]models.Subject
	marked   []string
	err      error
}

func (s *subjectStoreStub) ListByIDs(_ context.Context, ids []string) ([]models.Subject, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Subject
	for i := len(ids) - 1; i >= 0; i-- {
		if subject, ok := s.subjects[ids[i]]; ok {
			out = append(out, subject)
		}
	}
	return out, nil
}

func (s *subjectStoreStub) MarkScheduled(_ context.Context, _ sqlx.ExtContext, ids []string) error {
	s.marked = append(s.marked, ids...)
	return nil
}

type planStoreStub struct {
	plans   map[string]models.StudyPlan
	created []models.StudyPlan
}

func (s *planStoreStub) Create(_ context.Context, _ sqlx.ExtContext, plan *models.StudyPlan) error {
	if plan.ID == "" {
		plan.ID = "plan-1"
	}
	s.created = append(s.created, *plan)
	if s.plans == nil {
		s.plans = map[string]models.StudyPlan{}
	}
	s.plans[plan.ID] = *plan
	return nil
}

func (s *planStoreStub) List(_ context.Context, limit, offset int) ([]models.StudyPlan, int, error) {
	var out []models.StudyPlan
	for _, plan := range s.plans {
		out = append(out, plan)
	}
	return out, len(s.plans), nil
}

func (s *planStoreStub) FindByID(_ context.Context, id string) (*models.StudyPlan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &plan, nil
}

func (s *planStoreStub) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	if _, ok := s.plans[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.plans, id)
	return nil
}

type sessionStoreStub struct {
	sessions  map[string][]models.StudyPlanSession
	insertErr error
}

func (s *sessionStoreStub) InsertBatch(_ context.Context, _ sqlx.ExtContext, sessions []models.StudyPlanSession) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.sessions == nil {
		s.sessions = map[string][]models.StudyPlanSession{}
	}
	for _, session := range sessions {
		s.sessions[session.StudyPlanID] = append(s.sessions[session.StudyPlanID], session)
	}
	return nil
}

func (s *sessionStoreStub) ListByPlan(_ context.Context, planID string) ([]models.StudyPlanSession, error) {
	return s.sessions[planID], nil
}

func (s *sessionStoreStub) DeleteByPlan(_ context.Context, _ sqlx.ExtContext, planID string) error {
	delete(s.sessions, planID)
	return nil
}

type stubCacheRepo struct {
	store    map[string][]byte
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.store = nil
	return nil
}

type taskQueueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *taskQueueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

type timetableFixture struct {
	svc      *TimetableService
	subjects *subjectStoreStub
	plans    *planStoreStub
	sessions *sessionStoreStub
	mock     sqlmock.Sqlmock
	clock    time.Time
}

func newTimetableFixture(t *testing.T, cache *CacheService) *timetableFixture {
	tx, mock := newTxProviderMock(t)
	f := &timetableFixture{
		subjects: &subjectStoreStub{subjects: map[string]models.Subject{
			"A": {ID: "A", Name: "Algebra", Color: "#f00", OutstandingMinutes: 180},
			"B": {ID: "B", Name: "Biology", Color: "#0f0", OutstandingMinutes: 60},
		}},
		plans:    &planStoreStub{},
		sessions: &sessionStoreStub{},
		mock:     mock,
		clock:    plannerNow,
	}
	f.svc = NewTimetableService(TimetableServiceParams{
		Subjects: f.subjects,
		Plans:    f.plans,
		Sessions: f.sessions,
		Tx:       tx,
		Cache:    cache,
		Metrics:  NewMetricsService(),
		Config:   TimetableConfig{ProposalTTL: 30 * time.Minute, MaxDaysCount: 60},
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *appErrors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestTimetableServiceGenerate(t *testing.T) {
	f := newTimetableFixture(t, nil)

	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "B", "A"}})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ProposalID)
	assert.False(t, resp.Cached)
	assert.Equal(t, 7, resp.HorizonDays)
	require.Len(t, resp.Sessions, 4)
	assert.Equal(t, "A", resp.Sessions[0].SubjectID)
	assert.Equal(t, "B", resp.Sessions[1].SubjectID)
	assert.Equal(t, 4.0, resp.TotalHours)
	assert.Equal(t, 2, resp.SubjectsCovered)
}

func TestTimetableServiceGenerateUnknownSubject(t *testing.T) {
	f := newTimetableFixture(t, nil)

	_, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "ghost", "phantom"}})
	requireAppErrorCode(t, err, appErrors.ErrInvalidRequest.Code)
	assert.Contains(t, err.Error(), "ghost, phantom")
}

func TestTimetableServiceGenerateRejectsInvalidPayloads(t *testing.T) {
	f := newTimetableFixture(t, nil)
	zero := 0.0
	tooMany := 90
	badDate := "31/01/2026"

	cases := map[string]dto.GenerateTimetableRequest{
		"no subjects":    {},
		"zero hours":     {SubjectIDs: []string{"A"}, HoursPerDay: &zero},
		"unknown block":  {SubjectIDs: []string{"A"}, PreferredBlocks: []string{"Night"}},
		"days over max":  {SubjectIDs: []string{"A"}, DaysCount: &tooMany},
		"bad exam date":  {SubjectIDs: []string{"A"}, ExamDate: &badDate},
		"blank subjects": {SubjectIDs: []string{""}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Generate(context.Background(), req)
			requireAppErrorCode(t, err, appErrors.ErrInvalidRequest.Code)
		})
	}
}

func TestTimetableServiceGenerateExamInThePast(t *testing.T) {
	f := newTimetableFixture(t, nil)
	exam := "2026-01-09"

	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}, ExamDate: &exam})
	require.NoError(t, err)
	assert.Empty(t, resp.Sessions)
	assert.Zero(t, resp.TotalHours)
}

func TestTimetableServiceGenerateUsesConfiguredTimezone(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.svc.cfg.Location = time.FixedZone("UTC+14", 14*3600)
	exam := "2026-01-12"

	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}, ExamDate: &exam})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.HorizonDays, "local date is already 2026-01-11")
}

func TestTimetableServiceGenerateStoreFailure(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.subjects.err = errors.New("connection reset")

	_, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}})
	requireAppErrorCode(t, err, appErrors.ErrInternal.Code)
}

func TestTimetableServiceGenerateServesFromCache(t *testing.T) {
	repo := &stubCacheRepo{}
	f := newTimetableFixture(t, NewCacheService(repo, nil, time.Minute, nil, true))
	req := dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "B"}}

	first, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, repo.store, 1)

	second, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.ProposalID, second.ProposalID)
	assert.Equal(t, first.Sessions, second.Sessions)
}

func TestTimetableServiceSave(t *testing.T) {
	f := newTimetableFixture(t, nil)
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "B"}})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	plan, err := f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID, Title: "Finals"})
	require.NoError(t, err)
	assert.Equal(t, "Finals", plan.Title)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), plan.StartDate)
	assert.Equal(t, 7, plan.HorizonDays)
	assert.Contains(t, string(plan.Meta), `"scheduled_minutes":240`)

	saved := f.sessions.sessions[plan.ID]
	require.Len(t, saved, 4)
	assert.Equal(t, "08:00", saved[0].StartTime)
	assert.Equal(t, plan.StartDate, saved[0].ScheduledDate)
	assert.ElementsMatch(t, []string{"A", "B"}, f.subjects.marked)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceSaveInvalidatesCachedSchedules(t *testing.T) {
	repo := &stubCacheRepo{}
	f := newTimetableFixture(t, NewCacheService(repo, nil, time.Minute, nil, true))
	queue := &taskQueueStub{}
	f.svc.tasks = queue

	first, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "B"}})
	require.NoError(t, err)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: first.ProposalID})
	require.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobCacheInvalidate, queue.jobs[0].Type)
	assert.Equal(t, "timetable:*", queue.jobs[0].Payload)
	assert.Empty(t, repo.patterns, "queued invalidation does not run inline")

	require.NoError(t, f.svc.cache.HandleJob(context.Background(), queue.jobs[0]))
	assert.Equal(t, []string{"timetable:*"}, repo.patterns)

	queue.err = jobs.ErrQueueFull
	second, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}})
	require.NoError(t, err)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: second.ProposalID})
	require.NoError(t, err)
	assert.Len(t, repo.patterns, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimetableServiceSaveExpiredProposal(t *testing.T) {
	f := newTimetableFixture(t, nil)
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}})
	require.NoError(t, err)

	f.clock = f.clock.Add(31 * time.Minute)
	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceSaveEmptyProposal(t *testing.T) {
	f := newTimetableFixture(t, nil)
	exam := "2026-01-10"
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}, ExamDate: &exam})
	require.NoError(t, err)

	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrConflict.Code)
}

func TestTimetableServiceSaveRollsBack(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.sessions.insertErr = errors.New("disk full")
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrInternal.Code)
	assert.Empty(t, f.subjects.marked)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, ok := f.svc.store.Take(resp.ProposalID)
	assert.True(t, ok, "failed saves keep the proposal")
}

func TestTimetableServiceSaveConcurrentSameProposal(t *testing.T) {
	f := newTimetableFixture(t, nil)
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A", "B"}})
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var succeeded, notFound int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if errors.Is(err, appErrors.ErrNotFound) {
			notFound++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, notFound)
	assert.Len(t, f.plans.created, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimetableServiceSaveEmptyProposalKeepsProposal(t *testing.T) {
	f := newTimetableFixture(t, nil)
	exam := "2026-01-10"
	resp, err := f.svc.Generate(context.Background(), dto.GenerateTimetableRequest{SubjectIDs: []string{"A"}, ExamDate: &exam})
	require.NoError(t, err)

	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrConflict.Code)
	_, err = f.svc.Save(context.Background(), dto.SaveStudyPlanRequest{ProposalID: resp.ProposalID})
	requireAppErrorCode(t, err, appErrors.ErrConflict.Code)
}

func TestTimetableServiceList(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.plans.plans = map[string]models.StudyPlan{"plan-1": {ID: "plan-1"}}

	plans, pagination, err := f.svc.List(context.Background(), dto.StudyPlanQuery{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 100, TotalCount: 1}, pagination)
}

func TestTimetableServiceGetSessionsNotFound(t *testing.T) {
	f := newTimetableFixture(t, nil)

	_, err := f.svc.GetSessions(context.Background(), "missing")
	requireAppErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceDelete(t *testing.T) {
	f := newTimetableFixture(t, nil)
	f.plans.plans = map[string]models.StudyPlan{"plan-1": {ID: "plan-1"}}
	f.sessions.sessions = map[string][]models.StudyPlanSession{"plan-1": {{ID: "s-1"}}}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "plan-1"))
	assert.Empty(t, f.plans.plans)
	assert.Empty(t, f.sessions.sessions)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	err := f.svc.Delete(context.Background(), "plan-1")
	requireAppErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceExport(t *testing.T) {
	f := newTimetableFixture(t, nil)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	f.plans.plans = map[string]models.StudyPlan{"plan-1": {ID: "plan-1", Title: "Finals", StartDate: start}}
	f.sessions.sessions = map[string][]models.StudyPlanSession{"plan-1": {
		{Title: "Review: Biology", SessionType: "review", DayIndex: 1, ScheduledDate: start.AddDate(0, 0, 1), StartTime: "08:00", Block: "Morning", DurationMinutes: 60},
		{Title: "Deep Focus: Algebra", SessionType: "deep_focus", DayIndex: 0, ScheduledDate: start, StartTime: "13:00", Block: "Afternoon", DurationMinutes: 90},
	}}

	file, err := f.svc.Export(context.Background(), "plan-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "study-plan-2026-01-10.csv", file.Filename)
	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Day,Start,End,Block,Session,Type,Minutes", lines[0])
	assert.Equal(t, "2026-01-10,1,13:00,14:30,Afternoon,Deep Focus: Algebra,deep_focus,90", lines[1])

	pdf, err := f.svc.Export(context.Background(), "plan-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Content), "%PDF"))

	_, err = f.svc.Export(context.Background(), "plan-1", "xlsx")
	requireAppErrorCode(t, err, appErrors.ErrInvalidRequest.Code)
}
