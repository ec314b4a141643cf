package usecase

import (
	"context"
	"sync"
	"time"

	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

// CredentialStore keeps one Connection per persona in memory and mirrors
// every mutation to the durable repo. Durability is best effort: a failed
// flush is logged and the in-memory state stands.
type CredentialStore struct {
	mu    sync.RWMutex
	conns map[string]*model.Connection
	repo  repository.IConnection
}

func NewCredentialStore(repo repository.IConnection) *CredentialStore {
	return &CredentialStore{
		conns: make(map[string]*model.Connection),
		repo:  repo,
	}
}

// Load repopulates memory from the durable copy. Called once on startup.
func (s *CredentialStore) Load(ctx context.Context) error {
	conns, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range conns {
		s.conns[c.PersonaID] = c
	}
	logger.GetLogger().WithField("count", len(conns)).Info("Credential store loaded")
	return nil
}

func (s *CredentialStore) Upsert(ctx context.Context, conn *model.Connection) {
	cp := *conn
	s.mu.Lock()
	s.conns[cp.PersonaID] = &cp
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, &cp); err != nil {
		logger.GetLogger().
			WithField("persona_id", cp.PersonaID).
			WithField("error", err).
			Error("Credential flush failed; in-memory copy kept")
	}
}

func (s *CredentialStore) Get(personaID string) (*model.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[personaID]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (s *CredentialStore) Remove(ctx context.Context, personaID string) bool {
	s.mu.Lock()
	_, existed := s.conns[personaID]
	delete(s.conns, personaID)
	s.mu.Unlock()

	if _, err := s.repo.Remove(ctx, personaID); err != nil {
		logger.GetLogger().
			WithField("persona_id", personaID).
			WithField("error", err).
			Error("Credential removal flush failed; in-memory copy removed")
	}
	return existed
}

// FindByAccountID reverse-looks-up the persona that owns the given external
// account. Used by webhook persona resolution.
func (s *CredentialStore) FindByAccountID(accountID string) (*model.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		if c.AccountID == accountID {
			cp := *c
			return &cp, true
		}
	}
	return nil, false
}

func (s *CredentialStore) Personas() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.conns))
	for id := range s.conns {
		out = append(out, id)
	}
	return out
}

// SeedFromEnv registers a "default" persona from operator-provisioned env
// credentials. A no-op when the persona already exists, so a restart never
// clobbers a token obtained through OAuth.
func (s *CredentialStore) SeedFromEnv(ctx context.Context, accessToken, accountID string) {
	if accessToken == "" || accountID == "" {
		return
	}
	if _, ok := s.Get("default"); ok {
		return
	}
	s.Upsert(ctx, &model.Connection{
		PersonaID:   "default",
		AccessToken: accessToken,
		AccountID:   accountID,
		Kind:        model.KindForToken(accessToken),
		ConnectedAt: time.Now().UTC(),
	})
	logger.GetLogger().WithField("account_id", accountID).Info("Seeded default persona from environment")
}
