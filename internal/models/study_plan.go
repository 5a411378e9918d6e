package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// StudyPlanStatus represents lifecycle phases for saved study plans.
type StudyPlanStatus string

const (
	StudyPlanStatusActive   StudyPlanStatus = "ACTIVE"
	StudyPlanStatusArchived StudyPlanStatus = "ARCHIVED"
)

// StudyPlan is a persisted timetable proposal.
type StudyPlan struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Status      StudyPlanStatus `db:"status" json:"status"`
	StartDate   time.Time       `db:"start_date" json:"start_date"`
	HorizonDays int             `db:"horizon_days" json:"horizon_days"`
	TotalHours  float64         `db:"total_hours" json:"total_hours"`
	Meta        types.JSONText  `db:"meta" json:"meta"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// StudyPlanSession is one placed session of a saved study plan.
type StudyPlanSession struct {
	ID              string    `db:"id" json:"id"`
	StudyPlanID     string    `db:"study_plan_id" json:"study_plan_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	Title           string    `db:"title" json:"title"`
	SessionType     string    `db:"session_type" json:"session_type"`
	DayIndex        int       `db:"day_index" json:"day_index"`
	ScheduledDate   time.Time `db:"scheduled_date" json:"scheduled_date"`
	StartTime       string    `db:"start_time" json:"start_time"`
	Block           string    `db:"block" json:"block"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
