package persistence

import (
	"context"
	"database/sql"
	"time"

	"prism-connector/domain/model"
)

// ScheduleRepository persists publish jobs using PostgreSQL (native sql.DB).
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) Insert(ctx context.Context, job *model.ScheduledJob) error {
	q := `INSERT INTO scheduled_jobs (job_id, persona_id, name, image_url, caption, run_at, status, created_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, q,
		job.JobID, job.PersonaID, job.Name, job.ImageURL, job.Caption,
		job.RunAt, string(job.Status), job.CreatedAt)
	return err
}

func (r *ScheduleRepository) ListByPersona(ctx context.Context, personaID string) ([]*model.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT job_id, persona_id, name, image_url, caption, run_at, status, created_at
		 FROM scheduled_jobs WHERE persona_id=$1 ORDER BY run_at ASC`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *ScheduleRepository) Cancel(ctx context.Context, jobID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status='cancelled' WHERE job_id=$1 AND status='scheduled'`, jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimDue flips due jobs to fired and returns them in one statement, so two
// pollers never claim the same job.
func (r *ScheduleRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error) {
	q := `UPDATE scheduled_jobs SET status='fired'
		  WHERE job_id IN (
			SELECT job_id FROM scheduled_jobs
			WHERE status='scheduled' AND run_at <= $1
			ORDER BY run_at ASC LIMIT $2
			FOR UPDATE SKIP LOCKED
		  )
		  RETURNING job_id, persona_id, name, image_url, caption, run_at, status, created_at`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]*model.ScheduledJob, error) {
	var jobs []*model.ScheduledJob
	for rows.Next() {
		j := &model.ScheduledJob{}
		var status string
		if err := rows.Scan(&j.JobID, &j.PersonaID, &j.Name, &j.ImageURL, &j.Caption,
			&j.RunAt, &status, &j.CreatedAt); err != nil {
			return nil, err
		}
		j.Status = model.JobStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
