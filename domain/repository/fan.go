package repository

import (
	"context"

	"prism-connector/domain/model"
)

// IFanMemory is the keyed fan-history lookup consumed by reply drafting.
// Context returns a short summary string, or "" when the fan is unknown.
type IFanMemory interface {
	Context(ctx context.Context, personaID, fanID string) (string, error)
	RecordInteraction(ctx context.Context, personaID, fanID, username, commentText string) (*model.FanRecord, error)
}
