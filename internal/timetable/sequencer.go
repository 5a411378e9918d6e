package timetable

// SessionType is the pacing category of a study session.
type SessionType string

const (
	SessionDeepFocus  SessionType = "deep_focus"
	SessionReview     SessionType = "review"
	SessionQuickRecap SessionType = "quick_recap"
)

// MinSessionMinutes is the shortest session the engine will emit.
const MinSessionMinutes = 15

// Label returns the human readable prefix used in session titles.
func (t SessionType) Label() string {
	switch t {
	case SessionDeepFocus:
		return "Deep Focus"
	case SessionReview:
		return "Review"
	case SessionQuickRecap:
		return "Quick Recap"
	default:
		return "Study"
	}
}

// CatalogEntry pairs a session type with its default duration.
type CatalogEntry struct {
	Type    SessionType
	Minutes int
}

// DefaultCatalog is the deep-focus-heavy spaced practice cycle.
var DefaultCatalog = []CatalogEntry{
	{Type: SessionDeepFocus, Minutes: 90},
	{Type: SessionReview, Minutes: 60},
	{Type: SessionDeepFocus, Minutes: 90},
	{Type: SessionQuickRecap, Minutes: 30},
}

// Sequencer decides the next session for a subject given the minutes it still has and the
// session types already emitted for it.
type Sequencer interface {
	Next(remaining int, history []SessionType) (SessionType, int)
}

// CatalogSequencer walks a fixed catalog cyclically.
type CatalogSequencer struct {
	Catalog []CatalogEntry
}

// NewCatalogSequencer builds a sequencer over DefaultCatalog.
func NewCatalogSequencer() *CatalogSequencer {
	return &CatalogSequencer{Catalog: DefaultCatalog}
}

// Next implements Sequencer. A remainder shorter than the upcoming entry becomes a final
// session sized to the remainder, typed after the catalog entry of that exact length when one
// exists.
func (s *CatalogSequencer) Next(remaining int, history []SessionType) (SessionType, int) {
	catalog := s.Catalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	entry := catalog[len(history)%len(catalog)]
	if remaining >= entry.Minutes {
		return entry.Type, entry.Minutes
	}
	for _, candidate := range catalog {
		if candidate.Minutes == remaining {
			return candidate.Type, remaining
		}
	}
	return entry.Type, remaining
}

type plannedSession struct {
	subjectIndex int
	sessionType  SessionType
	minutes      int
}

// sequenceAll breaks allocations into typed sessions per subject. Sessions never exceed
// maxSession when it is positive, so each one fits a single day. Remainders below
// MinSessionMinutes move to the next subject in order.
func sequenceAll(allocations []Allocation, sequencer Sequencer, maxSession int) [][]plannedSession {
	queues := make([][]plannedSession, len(allocations))
	carry := 0
	for i, alloc := range allocations {
		remaining := alloc.AllocatedMinutes + carry
		carry = 0
		var history []SessionType
		for remaining >= MinSessionMinutes {
			sessionType, minutes := sequencer.Next(remaining, history)
			if minutes > remaining {
				minutes = remaining
			}
			if maxSession > 0 && minutes > maxSession {
				minutes = maxSession
			}
			if minutes < MinSessionMinutes {
				minutes = MinSessionMinutes
			}
			queues[i] = append(queues[i], plannedSession{subjectIndex: i, sessionType: sessionType, minutes: minutes})
			history = append(history, sessionType)
			remaining -= minutes
		}
		carry = remaining
	}
	return queues
}
