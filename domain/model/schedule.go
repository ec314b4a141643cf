package model

import "time"

type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobFired     JobStatus = "fired"
	JobCancelled JobStatus = "cancelled"
)

// ScheduledJob maps a future instant to a publish invocation. RunAt is
// always UTC. Name embeds the persona id and a caption prefix so listing by
// persona needs no secondary index.
type ScheduledJob struct {
	JobID     string    `json:"job_id"`
	PersonaID string    `json:"persona_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	RunAt     time.Time `json:"run_at"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
