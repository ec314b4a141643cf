package repository

import (
	"context"

	"prism-connector/domain/model"
)

// IConnection is the durable side of the credential store. The in-memory
// map in front of it is owned by the usecase layer; implementations only
// need single-writer-per-key safety.
type IConnection interface {
	Upsert(ctx context.Context, conn *model.Connection) error
	Get(ctx context.Context, personaID string) (*model.Connection, error)
	Remove(ctx context.Context, personaID string) (bool, error)
	List(ctx context.Context) ([]*model.Connection, error)
}
