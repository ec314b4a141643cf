package persistence

import (
	"context"
	"database/sql"
	"time"

	"prism-connector/domain/model"
)

// ScheduleRepositoryMSSQL persists publish jobs using SQL Server.
type ScheduleRepositoryMSSQL struct{ db *sql.DB }

func NewScheduleRepositoryMSSQL(db *sql.DB) *ScheduleRepositoryMSSQL {
	return &ScheduleRepositoryMSSQL{db: db}
}

func (r *ScheduleRepositoryMSSQL) Insert(ctx context.Context, job *model.ScheduledJob) error {
	q := `INSERT INTO dbo.[scheduled_jobs] (job_id, persona_id, name, image_url, caption, run_at, status, created_at)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8)`
	_, err := r.db.ExecContext(ctx, q,
		job.JobID, job.PersonaID, job.Name, job.ImageURL, job.Caption,
		job.RunAt, string(job.Status), job.CreatedAt)
	return err
}

func (r *ScheduleRepositoryMSSQL) ListByPersona(ctx context.Context, personaID string) ([]*model.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT job_id, persona_id, name, image_url, caption, run_at, status, created_at
		 FROM dbo.[scheduled_jobs] WHERE persona_id=@p1 ORDER BY run_at ASC`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *ScheduleRepositoryMSSQL) Cancel(ctx context.Context, jobID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_jobs] SET status='cancelled' WHERE job_id=@p1 AND status='scheduled'`, jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimDue uses OUTPUT with row locking hints for the same single-claimer
// guarantee the PostgreSQL variant gets from RETURNING.
func (r *ScheduleRepositoryMSSQL) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error) {
	q := `UPDATE j SET status='fired'
		  OUTPUT inserted.job_id, inserted.persona_id, inserted.name, inserted.image_url, inserted.caption, inserted.run_at, inserted.status, inserted.created_at
		  FROM (
			SELECT TOP (@p2) * FROM dbo.[scheduled_jobs] WITH (UPDLOCK, READPAST)
			WHERE status='scheduled' AND run_at <= @p1
			ORDER BY run_at ASC
		  ) AS j`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}
