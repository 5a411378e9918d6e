package dto

import "github.com/noah-isme/study-planner-api/internal/timetable"

// GenerateTimetableRequest asks for a study plan over the given subjects. Optional fields fall
// back to configured defaults.
type GenerateTimetableRequest struct {
	SubjectIDs      []string `json:"subject_ids" validate:"required,min=1,max=64,dive,required"`
	HoursPerDay     *float64 `json:"hours_per_day" validate:"omitempty,gt=0,max=24"`
	PreferredBlocks []string `json:"preferred_blocks" validate:"omitempty,max=3"`
	ExamDate        *string  `json:"exam_date" validate:"omitempty,datetime=2006-01-02"`
	DaysCount       *int     `json:"days_count" validate:"omitempty,min=1"`
	Spread          bool     `json:"spread"`
}

// GenerateTimetableResponse is a generated schedule together with the proposal id that saves it.
type GenerateTimetableResponse struct {
	ProposalID string `json:"proposal_id"`
	Cached     bool   `json:"cached"`
	timetable.Schedule
}

// SaveStudyPlanRequest persists a previously generated proposal.
type SaveStudyPlanRequest struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	Title      string `json:"title" validate:"omitempty,max=120"`
}

// StudyPlanQuery paginates saved study plans.
type StudyPlanQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
