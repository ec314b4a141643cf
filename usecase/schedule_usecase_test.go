package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prism-connector/domain/model"
	"prism-connector/infrastructure/persistence"
	"prism-connector/usecase"
)

func TestSchedule_Validation(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	uc := usecase.NewScheduleUsecase(repo, new(MockPublishUsecase), connectedStore(t, "luna", "EAAtoken", "acct-1"))
	ctx := context.Background()

	_, err := uc.Schedule(ctx, "luna", "https://img/x.jpg", "hi", time.Now().Add(-5*time.Minute))
	assert.ErrorIs(t, err, usecase.ErrValidation)

	// A run time slightly in the past is clock skew, not an error.
	job, err := uc.Schedule(ctx, "luna", "https://img/x.jpg", "hi", time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, model.JobScheduled, job.Status)
}

func TestSchedule_RequiresConnection(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	store, _ := newStore(t)
	uc := usecase.NewScheduleUsecase(repo, new(MockPublishUsecase), store)

	_, err := uc.Schedule(context.Background(), "ghost", "https://img/x.jpg", "hi", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, usecase.ErrCredential)

	jobs, err := uc.List(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSchedule_JobNameTruncation(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	uc := usecase.NewScheduleUsecase(repo, new(MockPublishUsecase), connectedStore(t, "luna", "EAAtoken", "acct-1"))

	caption := strings.Repeat("晨", 40)
	job, err := uc.Schedule(context.Background(), "luna", "https://img/x.jpg", caption, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "luna:"+strings.Repeat("晨", 30), job.Name)
	assert.True(t, job.RunAt.Location() == time.UTC)
}

func TestCancel(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	uc := usecase.NewScheduleUsecase(repo, new(MockPublishUsecase), connectedStore(t, "luna", "EAAtoken", "acct-1"))
	ctx := context.Background()

	job, err := uc.Schedule(ctx, "luna", "https://img/x.jpg", "hi", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, uc.Cancel(ctx, job.JobID))
	// Second cancel finds nothing cancellable.
	assert.ErrorIs(t, uc.Cancel(ctx, job.JobID), usecase.ErrNotFound)
	assert.ErrorIs(t, uc.Cancel(ctx, "no-such-job"), usecase.ErrNotFound)
}

func TestProcessDueJobs_FiresDueJob(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	publish := new(MockPublishUsecase)
	uc := usecase.NewScheduleUsecase(repo, publish, connectedStore(t, "luna", "EAAtoken", "acct-1"))
	ctx := context.Background()

	job, err := uc.Schedule(ctx, "luna", "https://img/x.jpg", "hi", time.Now().Add(-10*time.Second))
	require.NoError(t, err)

	publish.On("Publish", mock.Anything, "luna", "https://img/x.jpg", "hi").Return("media-1", nil).Once()
	require.NoError(t, uc.ProcessDueJobs(ctx))
	publish.AssertExpectations(t)

	// The claim consumed the job; the next tick sees nothing.
	require.NoError(t, uc.ProcessDueJobs(ctx))
	publish.AssertNumberOfCalls(t, "Publish", 1)

	jobs, err := uc.List(ctx, "luna")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.JobID, jobs[0].JobID)
	assert.Equal(t, model.JobFired, jobs[0].Status)
}

func TestProcessDueJobs_MisfireSkipsPublish(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	publish := new(MockPublishUsecase)
	uc := usecase.NewScheduleUsecase(repo, publish, connectedStore(t, "luna", "EAAtoken", "acct-1"))
	ctx := context.Background()

	// Inserted directly: Schedule would refuse a run time this old.
	require.NoError(t, repo.Insert(ctx, &model.ScheduledJob{
		JobID:     "stale",
		PersonaID: "luna",
		ImageURL:  "https://img/x.jpg",
		Caption:   "old news",
		RunAt:     time.Now().UTC().Add(-time.Hour),
		Status:    model.JobScheduled,
		CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, uc.ProcessDueJobs(ctx))
	publish.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	jobs, err := uc.List(ctx, "luna")
	require.NoError(t, err)
	assert.Equal(t, model.JobFired, jobs[0].Status)
}

func TestProcessDueJobs_FailureDoesNotRequeue(t *testing.T) {
	repo := persistence.NewMemoryScheduleRepository()
	publish := new(MockPublishUsecase)
	uc := usecase.NewScheduleUsecase(repo, publish, connectedStore(t, "luna", "EAAtoken", "acct-1"))
	ctx := context.Background()

	_, err := uc.Schedule(ctx, "luna", "https://img/x.jpg", "hi", time.Now().Add(-10*time.Second))
	require.NoError(t, err)

	publish.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", usecase.ErrContainer).Once()
	require.NoError(t, uc.ProcessDueJobs(ctx))

	// The failed job stays fired; it is not retried on the next pass.
	require.NoError(t, uc.ProcessDueJobs(ctx))
	publish.AssertNumberOfCalls(t, "Publish", 1)
}
