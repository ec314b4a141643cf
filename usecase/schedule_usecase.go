package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

const (
	// scheduleGrace is how far in the past a requested run time may be and
	// still be accepted. Anything older is a caller mistake, not clock skew.
	scheduleGrace = 60 * time.Second
	// misfireGrace bounds how stale a claimed job may be and still publish.
	// Jobs past it are marked fired but skipped, so a long outage does not
	// flood timelines on restart.
	misfireGrace = 5 * time.Minute
	// claimBatch caps claims per tick.
	claimBatch = 20
	// jobNameCaption is how much caption goes into the job name.
	jobNameCaption = 30
)

type IScheduleUsecase interface {
	Schedule(ctx context.Context, personaID, imageURL, caption string, runAt time.Time) (*model.ScheduledJob, error)
	List(ctx context.Context, personaID string) ([]*model.ScheduledJob, error)
	Cancel(ctx context.Context, jobID string) error
	// ProcessDueJobs is the ticker entrypoint: claim everything due and
	// publish each claimed job, isolating per-job failures.
	ProcessDueJobs(ctx context.Context) error
}

type scheduleUsecase struct {
	repo    repository.ISchedule
	publish IPublishUsecase
	store   *CredentialStore
	now     func() time.Time
}

func NewScheduleUsecase(repo repository.ISchedule, publish IPublishUsecase, store *CredentialStore) IScheduleUsecase {
	return &scheduleUsecase{repo: repo, publish: publish, store: store, now: time.Now}
}

func (u *scheduleUsecase) Schedule(ctx context.Context, personaID, imageURL, caption string, runAt time.Time) (*model.ScheduledJob, error) {
	if _, ok := u.store.Get(personaID); !ok {
		return nil, newError(ErrCredential,
			"Instagram account not connected for persona_id=%s. Call /api/instagram/auth first.", personaID)
	}
	runAt = runAt.UTC()
	now := u.now().UTC()
	if runAt.Before(now.Add(-scheduleGrace)) {
		return nil, newError(ErrValidation, "scheduled_time %s is in the past", runAt.Format(time.RFC3339))
	}

	job := &model.ScheduledJob{
		JobID:     uuid.New().String(),
		PersonaID: personaID,
		Name:      jobName(personaID, caption),
		ImageURL:  imageURL,
		Caption:   caption,
		RunAt:     runAt,
		Status:    model.JobScheduled,
		CreatedAt: now,
	}
	if err := u.repo.Insert(ctx, job); err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("job_id", job.JobID).
		WithField("persona_id", personaID).
		WithField("run_at", runAt.Format(time.RFC3339)).
		Info("Publish scheduled")
	return job, nil
}

func (u *scheduleUsecase) List(ctx context.Context, personaID string) ([]*model.ScheduledJob, error) {
	return u.repo.ListByPersona(ctx, personaID)
}

func (u *scheduleUsecase) Cancel(ctx context.Context, jobID string) error {
	ok, err := u.repo.Cancel(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrNotFound, "job %s not found or no longer cancellable", jobID)
	}
	logger.GetLogger().WithField("job_id", jobID).Info("Scheduled publish cancelled")
	return nil
}

func (u *scheduleUsecase) ProcessDueJobs(ctx context.Context) error {
	now := u.now().UTC()
	jobs, err := u.repo.ClaimDue(ctx, now, claimBatch)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		log := logger.GetLogger().
			WithField("job_id", job.JobID).
			WithField("persona_id", job.PersonaID)

		if now.Sub(job.RunAt) > misfireGrace {
			log.WithField("run_at", job.RunAt.Format(time.RFC3339)).
				Warn("Job missed its misfire grace; skipping publish")
			continue
		}

		if _, err := u.publish.Publish(ctx, job.PersonaID, job.ImageURL, job.Caption); err != nil {
			// A failed fire is logged, not re-queued: the claim already
			// consumed the job and retrying old content is worse than a gap.
			log.WithField("error", err).Error("Scheduled publish failed")
			continue
		}
		log.Info("Scheduled publish fired")
	}
	return nil
}

func jobName(personaID, caption string) string {
	runes := []rune(caption)
	if len(runes) > jobNameCaption {
		runes = runes[:jobNameCaption]
	}
	return personaID + ":" + string(runes)
}
