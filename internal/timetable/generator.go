// Package timetable turns subjects with outstanding study time into a concrete, non-overlapping
// plan of study sessions. It performs no I/O and keeps no state between calls.
package timetable

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

const (
	// DefaultGranularity is the allocation rounding step in minutes.
	DefaultGranularity = 30
	maxHoursPerDay     = 24
)

var sessionNamespace = uuid.MustParse("6f0c3c1e-5f1e-4c43-9f0b-7d3a2b1c9e10")

// Subject is the read-only snapshot the engine plans for.
type Subject struct {
	ID                 string `json:"id" yaml:"id"`
	Name               string `json:"name" yaml:"name"`
	Color              string `json:"color" yaml:"color"`
	OutstandingMinutes int    `json:"outstanding_minutes" yaml:"outstanding_minutes"`
}

// Request carries the constraints of one generation. Today anchors exam-date arithmetic.
type Request struct {
	Subjects        []Subject
	HoursPerDay     float64
	PreferredBlocks []string
	ExamDate        *time.Time
	DaysCount       int
	Today           time.Time
	Spread          bool
}

// Session is a placed study session.
type Session struct {
	ID              string      `json:"id"`
	SubjectID       string      `json:"subject_id"`
	SubjectName     string      `json:"subject_name"`
	SubjectColor    string      `json:"subject_color"`
	Title           string      `json:"title"`
	DurationMinutes int         `json:"duration_minutes"`
	StartTime       string      `json:"start_time"`
	Block           string      `json:"block"`
	DayIndex        int         `json:"day_index"`
	SessionType     SessionType `json:"session_type"`
}

// SubjectCoverage compares what a subject was allocated against what was placed.
type SubjectCoverage struct {
	Allocation
	ScheduledMinutes int `json:"scheduled_minutes"`
	Sessions         int `json:"sessions"`
}

// Schedule is the generated plan plus its summary.
type Schedule struct {
	Sessions         []Session         `json:"sessions"`
	TotalHours       float64           `json:"total_hours"`
	Days             int               `json:"days"`
	SubjectsCovered  int               `json:"subjects_covered"`
	HorizonDays      int               `json:"horizon_days"`
	RequestedMinutes int               `json:"requested_minutes"`
	ScheduledMinutes int               `json:"scheduled_minutes"`
	UnplacedMinutes  int               `json:"unplaced_minutes"`
	UnplacedSessions int               `json:"unplaced_sessions"`
	Coverage         []SubjectCoverage `json:"coverage"`
}

// Options tunes a Generator.
type Options struct {
	Granularity int
	Sequencer   Sequencer
}

// Generator runs the distribution, sequencing and placement pipeline.
type Generator struct {
	granularity int
	sequencer   Sequencer
}

// NewGenerator applies defaults to the provided options.
func NewGenerator(opts Options) *Generator {
	if opts.Granularity < MinSessionMinutes {
		opts.Granularity = DefaultGranularity
	}
	if opts.Sequencer == nil {
		opts.Sequencer = NewCatalogSequencer()
	}
	return &Generator{granularity: opts.Granularity, sequencer: opts.Sequencer}
}

// Generate builds a schedule for req. Only malformed requests fail; running out of capacity
// yields a smaller or empty schedule.
func (g *Generator) Generate(req Request) (Schedule, error) {
	subjects, blocks, err := validate(req)
	if err != nil {
		return Schedule{}, err
	}

	horizon := EffectiveDays(req.DaysCount, req.ExamDate, req.Today)
	if horizon <= 0 {
		return emptySchedule(subjects), nil
	}

	minutesPerDay := int(math.Floor(req.HoursPerDay*60 + epsilon))
	dailyCapacity := minutesPerDay
	if blockMinutes := totalBlockMinutes(blocks); blockMinutes < dailyCapacity {
		dailyCapacity = blockMinutes
	}

	maxSession := minutesPerDay
	if longest := longestBlockMinutes(blocks); longest < maxSession {
		maxSession = longest
	}

	allocations := Distribute(subjects, dailyCapacity*horizon, g.granularity)
	queues := sequenceAll(allocations, g.sequencer, maxSession)
	days := newDayCapacities(horizon, minutesPerDay, blocks)
	placed, unplaced := placeSessions(queues, blocks, days, req.Spread)

	return assemble(subjects, allocations, placed, unplaced, horizon), nil
}

// EffectiveDays bounds the horizon by the exam date: the plan starts today and the exam day
// itself is not planned.
func EffectiveDays(daysCount int, examDate *time.Time, today time.Time) int {
	if examDate == nil {
		return daysCount
	}
	untilExam := daysBetween(today, *examDate)
	if untilExam < daysCount {
		return untilExam
	}
	return daysCount
}

func daysBetween(from, to time.Time) int {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

func validate(req Request) ([]Subject, []TimeBlock, error) {
	if len(req.Subjects) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidRequest, "subject_ids must not be empty")
	}
	if math.IsNaN(req.HoursPerDay) || req.HoursPerDay <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidRequest, "hours_per_day must be positive")
	}
	if req.HoursPerDay > maxHoursPerDay {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("hours_per_day must not exceed %d", maxHoursPerDay))
	}
	if req.DaysCount <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidRequest, "days_count must be positive")
	}
	blocks, err := ResolveBlocks(req.PreferredBlocks)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(req.Subjects))
	subjects := make([]Subject, 0, len(req.Subjects))
	for _, subject := range req.Subjects {
		if subject.ID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidRequest, "subject id must not be blank")
		}
		if seen[subject.ID] {
			continue
		}
		seen[subject.ID] = true
		subjects = append(subjects, subject)
	}
	return subjects, blocks, nil
}

func totalBlockMinutes(blocks []TimeBlock) int {
	total := 0
	for _, block := range blocks {
		total += block.Minutes()
	}
	return total
}

func longestBlockMinutes(blocks []TimeBlock) int {
	longest := 0
	for _, block := range blocks {
		if block.Minutes() > longest {
			longest = block.Minutes()
		}
	}
	return longest
}

func emptySchedule(subjects []Subject) Schedule {
	coverage := make([]SubjectCoverage, len(subjects))
	for i, subject := range subjects {
		coverage[i] = SubjectCoverage{Allocation: Allocation{SubjectID: subject.ID, OutstandingMinutes: clampOutstanding(subject.OutstandingMinutes)}}
	}
	return Schedule{Sessions: []Session{}, Coverage: coverage}
}

func assemble(subjects []Subject, allocations []Allocation, placed []placedSession, unplaced []plannedSession, horizon int) Schedule {
	sort.SliceStable(placed, func(i, j int) bool {
		if placed[i].dayIndex == placed[j].dayIndex {
			return placed[i].start < placed[j].start
		}
		return placed[i].dayIndex < placed[j].dayIndex
	})

	schedule := Schedule{
		Sessions:    make([]Session, 0, len(placed)),
		HorizonDays: horizon,
		Coverage:    make([]SubjectCoverage, len(allocations)),
	}
	for i, alloc := range allocations {
		schedule.Coverage[i] = SubjectCoverage{Allocation: alloc}
		schedule.RequestedMinutes += alloc.AllocatedMinutes
	}

	for _, p := range placed {
		subject := subjects[p.subjectIndex]
		schedule.Sessions = append(schedule.Sessions, Session{
			ID:              sessionID(subject.ID, p.dayIndex, p.start),
			SubjectID:       subject.ID,
			SubjectName:     subject.Name,
			SubjectColor:    subject.Color,
			Title:           fmt.Sprintf("%s: %s", p.sessionType.Label(), subject.Name),
			DurationMinutes: p.minutes,
			StartTime:       formatClock(p.start),
			Block:           p.block.Name,
			DayIndex:        p.dayIndex,
			SessionType:     p.sessionType,
		})
		schedule.ScheduledMinutes += p.minutes
		schedule.Coverage[p.subjectIndex].ScheduledMinutes += p.minutes
		schedule.Coverage[p.subjectIndex].Sessions++
		if p.dayIndex+1 > schedule.Days {
			schedule.Days = p.dayIndex + 1
		}
	}

	for _, u := range unplaced {
		schedule.UnplacedMinutes += u.minutes
		schedule.UnplacedSessions++
	}
	for _, c := range schedule.Coverage {
		if c.Sessions > 0 {
			schedule.SubjectsCovered++
		}
	}
	schedule.TotalHours = math.Round(float64(schedule.ScheduledMinutes)/60*10) / 10
	return schedule
}

// sessionID is derived from the slot so identical inputs give identical ids.
func sessionID(subjectID string, day, start int) string {
	return uuid.NewSHA1(sessionNamespace, []byte(fmt.Sprintf("%s/%d/%d", subjectID, day, start))).String()
}
