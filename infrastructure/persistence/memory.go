package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"prism-connector/domain/model"
)

// In-memory repositories back the orchestrator when no database is
// configured. State is lost on restart, which is acceptable for local
// development and for tests.

type MemoryConnectionRepository struct {
	mu    sync.RWMutex
	conns map[string]model.Connection
}

func NewMemoryConnectionRepository() *MemoryConnectionRepository {
	return &MemoryConnectionRepository{conns: make(map[string]model.Connection)}
}

func (r *MemoryConnectionRepository) Upsert(_ context.Context, conn *model.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.PersonaID] = *conn
	return nil
}

func (r *MemoryConnectionRepository) Get(_ context.Context, personaID string) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[personaID]
	if !ok {
		return nil, nil
	}
	out := conn
	return &out, nil
}

func (r *MemoryConnectionRepository) Remove(_ context.Context, personaID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[personaID]
	delete(r.conns, personaID)
	return ok, nil
}

func (r *MemoryConnectionRepository) List(_ context.Context) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*model.Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out := conn
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PersonaID < list[j].PersonaID })
	return list, nil
}

type MemoryScheduleRepository struct {
	mu   sync.Mutex
	jobs map[string]*model.ScheduledJob
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{jobs: make(map[string]*model.ScheduledJob)}
}

func (r *MemoryScheduleRepository) Insert(_ context.Context, job *model.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.JobID] = &copied
	return nil
}

func (r *MemoryScheduleRepository) ListByPersona(_ context.Context, personaID string) ([]*model.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*model.ScheduledJob
	for _, j := range r.jobs {
		if j.PersonaID == personaID {
			copied := *j
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RunAt.Before(list[j].RunAt) })
	return list, nil
}

func (r *MemoryScheduleRepository) Cancel(_ context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok || j.Status != model.JobScheduled {
		return false, nil
	}
	j.Status = model.JobCancelled
	return true, nil
}

func (r *MemoryScheduleRepository) ClaimDue(_ context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*model.ScheduledJob
	for _, j := range r.jobs {
		if j.Status == model.JobScheduled && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]*model.ScheduledJob, 0, len(due))
	for _, j := range due {
		j.Status = model.JobFired
		copied := *j
		out = append(out, &copied)
	}
	return out, nil
}

type MemoryReplyRepository struct {
	mu     sync.Mutex
	drafts map[string]*model.ReplyDraft
	modes  map[string]model.AutoReplyMode
}

func NewMemoryReplyRepository() *MemoryReplyRepository {
	return &MemoryReplyRepository{
		drafts: make(map[string]*model.ReplyDraft),
		modes:  make(map[string]model.AutoReplyMode),
	}
}

func (r *MemoryReplyRepository) InsertDraft(_ context.Context, draft *model.ReplyDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *draft
	r.drafts[draft.ReplyID] = &copied
	return nil
}

func (r *MemoryReplyRepository) GetDraft(_ context.Context, replyID string) (*model.ReplyDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[replyID]
	if !ok {
		return nil, errNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *MemoryReplyRepository) ListPending(_ context.Context, personaID string) ([]*model.ReplyDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*model.ReplyDraft
	for _, d := range r.drafts {
		if d.PersonaID == personaID && d.Status == model.ReplyPending {
			copied := *d
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *MemoryReplyRepository) Transition(_ context.Context, replyID string, to model.ReplyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[replyID]
	if !ok {
		return errNotFound
	}
	if d.Status != model.ReplyPending {
		return errNotPending
	}
	d.Status = to
	return nil
}

func (r *MemoryReplyRepository) GetMode(_ context.Context, personaID string) (model.AutoReplyMode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode, ok := r.modes[personaID]; ok {
		return mode, nil
	}
	return model.AutoReplyDraft, nil
}

func (r *MemoryReplyRepository) SetMode(_ context.Context, personaID string, mode model.AutoReplyMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes[personaID] = mode
	return nil
}

// MemoryFanRepository is the fan-memory fallback when Mongo is unavailable.
type MemoryFanRepository struct {
	mu   sync.Mutex
	fans map[string]*model.FanRecord
}

func NewMemoryFanRepository() *MemoryFanRepository {
	return &MemoryFanRepository{fans: make(map[string]*model.FanRecord)}
}

func fanKey(personaID, fanID string) string { return personaID + "|" + fanID }

func (r *MemoryFanRepository) RecordInteraction(_ context.Context, personaID, fanID, username, commentText string) (*model.FanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec, ok := r.fans[fanKey(personaID, fanID)]
	if !ok {
		rec = &model.FanRecord{PersonaID: personaID, FanID: fanID, FirstSeen: now}
		r.fans[fanKey(personaID, fanID)] = rec
	}
	rec.Username = username
	rec.InteractionCount++
	rec.Notes = commentText
	rec.LastInteraction = now
	copied := *rec
	return &copied, nil
}

func (r *MemoryFanRepository) Context(_ context.Context, personaID, fanID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.fans[fanKey(personaID, fanID)]
	if !ok {
		return "", nil
	}
	return fanSummary(rec), nil
}
