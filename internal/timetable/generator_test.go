package timetable

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

var fixedToday = time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

func newRequest(subjects ...Subject) Request {
	return Request{
		Subjects:    subjects,
		HoursPerDay: 4,
		DaysCount:   7,
		Today:       fixedToday,
	}
}

func dateOffset(days int) *time.Time {
	d := fixedToday.AddDate(0, 0, days)
	return &d
}

func TestGenerateProportionalAllocation(t *testing.T) {
	gen := NewGenerator(Options{})

	schedule, err := gen.Generate(newRequest(
		Subject{ID: "A", Name: "Algebra", Color: "#f00", OutstandingMinutes: 180},
		Subject{ID: "B", Name: "Biology", Color: "#0f0", OutstandingMinutes: 60},
	))
	require.NoError(t, err)

	require.Len(t, schedule.Coverage, 2)
	assert.Equal(t, 180, schedule.Coverage[0].AllocatedMinutes)
	assert.Equal(t, 60, schedule.Coverage[1].AllocatedMinutes)
	assert.Equal(t, 3*schedule.Coverage[1].AllocatedMinutes, schedule.Coverage[0].AllocatedMinutes)
	assert.Equal(t, 2, schedule.SubjectsCovered)
	assert.Equal(t, 1, schedule.Days)
	assert.Equal(t, 4.0, schedule.TotalHours)
	assert.Zero(t, schedule.UnplacedMinutes)

	require.Len(t, schedule.Sessions, 4)
	first := schedule.Sessions[0]
	assert.Equal(t, "A", first.SubjectID)
	assert.Equal(t, "Deep Focus: Algebra", first.Title)
	assert.Equal(t, "08:00", first.StartTime)
	assert.Equal(t, "Morning", first.Block)
	assert.Equal(t, "#f00", first.SubjectColor)

	second := schedule.Sessions[1]
	assert.Equal(t, "B", second.SubjectID, "subjects should interleave round-robin")
	assert.Equal(t, SessionReview, second.SessionType)
	assert.Equal(t, "09:30", second.StartTime)
}

func TestGenerateZeroOutstandingFallsBackToEqualSplit(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "Algebra"})
	req.HoursPerDay = 2
	req.DaysCount = 1

	schedule, err := gen.Generate(req)
	require.NoError(t, err)

	require.NotEmpty(t, schedule.Sessions)
	assert.Greater(t, schedule.TotalHours, 0.0)
	assert.Equal(t, 1, schedule.SubjectsCovered)
	assert.Equal(t, 120, schedule.ScheduledMinutes)
	assert.Equal(t, SessionDeepFocus, schedule.Sessions[0].SessionType)
	assert.Equal(t, SessionQuickRecap, schedule.Sessions[1].SessionType)
}

func TestGenerateExamDateInPastReturnsEmptySchedule(t *testing.T) {
	gen := NewGenerator(Options{})
	for _, offset := range []int{-1, 0} {
		t.Run(fmt.Sprintf("offset_%d", offset), func(t *testing.T) {
			req := newRequest(Subject{ID: "A", Name: "Algebra", OutstandingMinutes: 600})
			req.ExamDate = dateOffset(offset)

			schedule, err := gen.Generate(req)
			require.NoError(t, err)
			assert.NotNil(t, schedule.Sessions)
			assert.Empty(t, schedule.Sessions)
			assert.Zero(t, schedule.Days)
			assert.Zero(t, schedule.SubjectsCovered)
			assert.Zero(t, schedule.TotalHours)
		})
	}
}

func TestGenerateExamDateClampsHorizon(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "Algebra", OutstandingMinutes: 100000})
	req.DaysCount = 30
	req.ExamDate = dateOffset(3)

	schedule, err := gen.Generate(req)
	require.NoError(t, err)
	assert.LessOrEqual(t, schedule.Days, 3)
	assert.Equal(t, 3, schedule.HorizonDays)
	for _, session := range schedule.Sessions {
		assert.Less(t, session.DayIndex, 3)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(
		Subject{ID: "A", Name: "Algebra", OutstandingMinutes: 500},
		Subject{ID: "B", Name: "Biology", OutstandingMinutes: 240},
		Subject{ID: "C", Name: "Chemistry", OutstandingMinutes: 45},
	)
	req.PreferredBlocks = []string{"Evening", "Morning"}
	req.ExamDate = dateOffset(5)

	first, err := gen.Generate(req)
	require.NoError(t, err)
	second, err := gen.Generate(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateRespectsCapacityAcrossInputs(t *testing.T) {
	gen := NewGenerator(Options{})
	subjectSets := [][]Subject{
		{{ID: "A", Name: "A", OutstandingMinutes: 1000}},
		{{ID: "A", Name: "A", OutstandingMinutes: 900}, {ID: "B", Name: "B", OutstandingMinutes: 35}, {ID: "C", Name: "C", OutstandingMinutes: 400}},
		{{ID: "A", Name: "A"}, {ID: "B", Name: "B"}, {ID: "C", Name: "C"}, {ID: "D", Name: "D"}},
		{{ID: "A", Name: "A", OutstandingMinutes: 20}, {ID: "B", Name: "B", OutstandingMinutes: 5000}},
		{{ID: "A", Name: "A", OutstandingMinutes: 10000}, {ID: "B", Name: "B", OutstandingMinutes: 10000}},
	}
	hours := []float64{0.5, 1, 1.25, 2.5, 4, 9, 14}
	blockSets := [][]string{nil, {"Evening"}, {"Afternoon", "Morning", "Evening"}}

	for si, subjects := range subjectSets {
		for _, h := range hours {
			for bi, blocks := range blockSets {
				for _, spread := range []bool{false, true} {
					name := fmt.Sprintf("set%d_h%.1f_blocks%d_spread%t", si, h, bi, spread)
					t.Run(name, func(t *testing.T) {
						req := newRequest(subjects...)
						req.HoursPerDay = h
						req.PreferredBlocks = blocks
						req.Spread = spread

						schedule, err := gen.Generate(req)
						require.NoError(t, err)
						assertScheduleWellFormed(t, schedule, req)
					})
				}
			}
		}
	}
}

func assertScheduleWellFormed(t *testing.T, schedule Schedule, req Request) {
	t.Helper()
	blocks, err := ResolveBlocks(req.PreferredBlocks)
	require.NoError(t, err)
	budget := int(req.HoursPerDay * 60)
	maxSession := budget
	if longest := longestBlockMinutes(blocks); longest < maxSession {
		maxSession = longest
	}
	perDay := map[int]int{}
	byDay := map[int][]Session{}
	bySubject := map[string]int{}
	ids := map[string]bool{}

	for _, session := range schedule.Sessions {
		assert.False(t, ids[session.ID], "duplicate session id %s", session.ID)
		ids[session.ID] = true
		assert.GreaterOrEqual(t, session.DayIndex, 0)
		assert.Less(t, session.DayIndex, req.DaysCount)
		assert.GreaterOrEqual(t, session.DurationMinutes, MinSessionMinutes)
		assert.LessOrEqual(t, session.DurationMinutes, maxSession)
		perDay[session.DayIndex] += session.DurationMinutes
		byDay[session.DayIndex] = append(byDay[session.DayIndex], session)
		bySubject[session.SubjectID]++
	}
	for day, total := range perDay {
		assert.LessOrEqual(t, total, budget, "day %d over budget", day)
	}
	for day, sessions := range byDay {
		for i := range sessions {
			for j := i + 1; j < len(sessions); j++ {
				aStart, aEnd := sessionRange(t, sessions[i])
				bStart, bEnd := sessionRange(t, sessions[j])
				assert.False(t, aStart < bEnd && bStart < aEnd, "overlap on day %d: %v %v", day, sessions[i], sessions[j])
			}
		}
	}

	owing := owingSubjects(req.Subjects)
	dailyCapacity := budget
	if total := totalBlockMinutes(blocks); total < dailyCapacity {
		dailyCapacity = total
	}
	capacity := dailyCapacity * schedule.HorizonDays
	for _, subject := range owing {
		if bySubject[subject.ID] > 0 {
			continue
		}
		assert.Less(t, capacity, DefaultGranularity*len(owing), "subject %s omitted with %d minutes of capacity", subject.ID, capacity)
	}
}

// owingSubjects lists the subjects the plan must reach: those with time outstanding, or all of
// them when nobody owes anything.
func owingSubjects(subjects []Subject) []Subject {
	var owing []Subject
	for _, subject := range subjects {
		if subject.OutstandingMinutes > 0 {
			owing = append(owing, subject)
		}
	}
	if len(owing) == 0 {
		return subjects
	}
	return owing
}

func sessionRange(t *testing.T, s Session) (int, int) {
	t.Helper()
	clock, err := time.Parse("15:04", s.StartTime)
	require.NoError(t, err)
	start := clock.Hour()*60 + clock.Minute()
	return start, start + s.DurationMinutes
}

func TestGenerateCoversEverySubjectWithOutstandingTime(t *testing.T) {
	gen := NewGenerator(Options{})
	schedule, err := gen.Generate(newRequest(
		Subject{ID: "A", Name: "A", OutstandingMinutes: 10},
		Subject{ID: "B", Name: "B", OutstandingMinutes: 10000},
		Subject{ID: "C", Name: "C", OutstandingMinutes: 12},
	))
	require.NoError(t, err)
	assert.Equal(t, 3, schedule.SubjectsCovered)
}

func TestGenerateHonoursSmallDailyBudget(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "A", OutstandingMinutes: 600})
	req.HoursPerDay = 0.5
	req.DaysCount = 1

	schedule, err := gen.Generate(req)
	require.NoError(t, err)
	require.Len(t, schedule.Sessions, 1)
	assert.Equal(t, SessionQuickRecap, schedule.Sessions[0].SessionType)
	assert.Equal(t, 0.5, schedule.TotalHours)
}

func TestGenerateCoversSubjectsWhenDaysAreShorterThanCatalogSessions(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(
		Subject{ID: "A", Name: "A", OutstandingMinutes: 10000},
		Subject{ID: "B", Name: "B", OutstandingMinutes: 10000},
	)
	req.HoursPerDay = 1.25
	req.DaysCount = 2

	schedule, err := gen.Generate(req)
	require.NoError(t, err)
	assert.Equal(t, 2, schedule.SubjectsCovered)
	assert.Equal(t, 150, schedule.RequestedMinutes)
	assert.Equal(t, 150, schedule.ScheduledMinutes)
	assert.Zero(t, schedule.UnplacedMinutes)
	assertScheduleWellFormed(t, schedule, req)
}

func TestGenerateFillsShortDaysAcrossHorizon(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "A", OutstandingMinutes: 10000})
	req.HoursPerDay = 1

	schedule, err := gen.Generate(req)
	require.NoError(t, err)
	assert.Equal(t, 420, schedule.ScheduledMinutes)
	assert.Equal(t, 7, schedule.Days)
	assert.Zero(t, schedule.UnplacedSessions)
	for _, session := range schedule.Sessions {
		assert.LessOrEqual(t, session.DurationMinutes, 60)
	}
	assertScheduleWellFormed(t, schedule, req)
}

func TestGenerateRecordsShortfall(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "A", OutstandingMinutes: 10000})
	req.HoursPerDay = 0.2

	schedule, err := gen.Generate(req)
	require.NoError(t, err)
	assert.Equal(t, 60, schedule.RequestedMinutes)
	assert.Zero(t, schedule.ScheduledMinutes)
	assert.Equal(t, 60, schedule.UnplacedMinutes)
	assert.Equal(t, 4, schedule.UnplacedSessions)
	assert.Zero(t, schedule.SubjectsCovered)
	assert.Empty(t, schedule.Sessions)
}

func TestGenerateSpreadUsesWholeHorizon(t *testing.T) {
	gen := NewGenerator(Options{})
	req := newRequest(Subject{ID: "A", Name: "A", OutstandingMinutes: 630})

	compact, err := gen.Generate(req)
	require.NoError(t, err)

	req.Spread = true
	spread, err := gen.Generate(req)
	require.NoError(t, err)

	assert.Equal(t, 7, spread.Days)
	assert.Less(t, compact.Days, spread.Days)
	assert.Equal(t, compact.ScheduledMinutes, spread.ScheduledMinutes)
}

func TestGenerateDeduplicatesSubjects(t *testing.T) {
	gen := NewGenerator(Options{})
	schedule, err := gen.Generate(newRequest(
		Subject{ID: "A", Name: "A", OutstandingMinutes: 60},
		Subject{ID: "A", Name: "A", OutstandingMinutes: 60},
	))
	require.NoError(t, err)
	assert.Len(t, schedule.Coverage, 1)
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	gen := NewGenerator(Options{})
	valid := newRequest(Subject{ID: "A", Name: "A", OutstandingMinutes: 60})

	cases := map[string]func(r *Request){
		"no subjects":        func(r *Request) { r.Subjects = nil },
		"zero hours":         func(r *Request) { r.HoursPerDay = 0 },
		"negative hours":     func(r *Request) { r.HoursPerDay = -2 },
		"too many hours":     func(r *Request) { r.HoursPerDay = 25 },
		"zero days":          func(r *Request) { r.DaysCount = 0 },
		"unknown block":      func(r *Request) { r.PreferredBlocks = []string{"Midnight"} },
		"blank subject id":   func(r *Request) { r.Subjects = []Subject{{Name: "x"}} },
		"negative day count": func(r *Request) { r.DaysCount = -3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := gen.Generate(req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidRequest.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestEffectiveDays(t *testing.T) {
	assert.Equal(t, 7, EffectiveDays(7, nil, fixedToday))
	assert.Equal(t, 3, EffectiveDays(30, dateOffset(3), fixedToday))
	assert.Equal(t, 7, EffectiveDays(7, dateOffset(30), fixedToday))
	assert.Equal(t, 0, EffectiveDays(7, dateOffset(0), fixedToday))
	assert.Equal(t, -1, EffectiveDays(7, dateOffset(-1), fixedToday))
}
