package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// StudyPlanRepository persists saved study plans.
type StudyPlanRepository struct {
	db *sqlx.DB
}

// NewStudyPlanRepository constructs repository.
func NewStudyPlanRepository(db *sqlx.DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

func (r *StudyPlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a study plan, filling id, status, meta and timestamps when absent.
func (r *StudyPlanRepository) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.StudyPlan) error {
	if plan == nil {
		return fmt.Errorf("study plan payload is nil")
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.Status == "" {
		plan.Status = models.StudyPlanStatusActive
	}
	if len(plan.Meta) == 0 {
		plan.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	const query = `
INSERT INTO study_plans (id, title, status, start_date, horizon_days, total_hours, meta, created_at, updated_at)
VALUES (:id, :title, :status, :start_date, :horizon_days, :total_hours, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, plan); err != nil {
		return fmt.Errorf("insert study plan: %w", err)
	}
	return nil
}

// List returns a page of study plans, newest first, with the total count.
func (r *StudyPlanRepository) List(ctx context.Context, limit, offset int) ([]models.StudyPlan, int, error) {
	const query = `SELECT id, title, status, start_date, horizon_days, total_hours, meta, created_at, updated_at
FROM study_plans ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	plans := []models.StudyPlan{}
	if err := r.db.SelectContext(ctx, &plans, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list study plans: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM study_plans`); err != nil {
		return nil, 0, fmt.Errorf("count study plans: %w", err)
	}
	return plans, total, nil
}

// FindByID loads a study plan by its identifier.
func (r *StudyPlanRepository) FindByID(ctx context.Context, id string) (*models.StudyPlan, error) {
	const query = `SELECT id, title, status, start_date, horizon_days, total_hours, meta, created_at, updated_at FROM study_plans WHERE id = $1`
	var plan models.StudyPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Delete removes a study plan. It returns sql.ErrNoRows when nothing was deleted.
func (r *StudyPlanRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM study_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete study plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("study plan rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
