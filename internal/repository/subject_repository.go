package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// SubjectRepository reads subjects and the study time still owed on their analyzed materials.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectSnapshotQuery = `
SELECT s.id, s.name, COALESCE(s.color, '') AS color,
       COALESCE(SUM(m.estimated_minutes), 0) AS outstanding_minutes
FROM subjects s
LEFT JOIN material_analyses m ON m.subject_id = s.id AND m.scheduled = FALSE`

// ListByIDs returns snapshots for the requested subjects. Unknown ids are simply absent from the
// result and the order is unspecified.
func (r *SubjectRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return []models.Subject{}, nil
	}
	query, args, err := sqlx.In(subjectSnapshotQuery+` WHERE s.id IN (?) GROUP BY s.id, s.name, s.color`, ids)
	if err != nil {
		return nil, fmt.Errorf("build subject snapshot query: %w", err)
	}
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list subjects by ids: %w", err)
	}
	return subjects, nil
}

// MarkScheduled flags the pending analyses of the given subjects as planned.
func (r *SubjectRepository) MarkScheduled(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if exec == nil {
		exec = r.db
	}
	query, args, err := sqlx.In(`UPDATE material_analyses SET scheduled = TRUE WHERE scheduled = FALSE AND subject_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build mark scheduled query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, exec.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark analyses scheduled: %w", err)
	}
	return nil
}
