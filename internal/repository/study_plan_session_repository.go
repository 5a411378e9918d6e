package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// StudyPlanSessionRepository manages the sessions of saved study plans.
type StudyPlanSessionRepository struct {
	db *sqlx.DB
}

// NewStudyPlanSessionRepository builds repository.
func NewStudyPlanSessionRepository(db *sqlx.DB) *StudyPlanSessionRepository {
	return &StudyPlanSessionRepository{db: db}
}

func (r *StudyPlanSessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores sessions one row at a time on the provided executor.
func (r *StudyPlanSessionRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudyPlanSession) error {
	if len(sessions) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO study_plan_sessions (id, study_plan_id, subject_id, title, session_type, day_index, scheduled_date, start_time, block, duration_minutes, created_at)
VALUES (:id, :study_plan_id, :subject_id, :title, :session_type, :day_index, :scheduled_date, :start_time, :block, :duration_minutes, :created_at)`

	for i := range sessions {
		session := &sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, session); err != nil {
			return fmt.Errorf("insert study plan session: %w", err)
		}
	}
	return nil
}

// ListByPlan returns sessions of a plan in chronological order.
func (r *StudyPlanSessionRepository) ListByPlan(ctx context.Context, planID string) ([]models.StudyPlanSession, error) {
	const query = `SELECT id, study_plan_id, subject_id, title, session_type, day_index, scheduled_date, start_time, block, duration_minutes, created_at
FROM study_plan_sessions WHERE study_plan_id = $1 ORDER BY day_index ASC, start_time ASC`
	sessions := []models.StudyPlanSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, planID); err != nil {
		return nil, fmt.Errorf("list study plan sessions: %w", err)
	}
	return sessions, nil
}

// DeleteByPlan removes every session of a plan.
func (r *StudyPlanSessionRepository) DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM study_plan_sessions WHERE study_plan_id = $1`, planID); err != nil {
		return fmt.Errorf("delete study plan sessions: %w", err)
	}
	return nil
}
