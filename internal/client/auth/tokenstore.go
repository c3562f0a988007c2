package auth

import (
	"context"

	"github.com/dmitrijs2005/mindshift/internal/client/repositories/snapshot"
	"github.com/dmitrijs2005/mindshift/internal/common"
)

// TokenStore remembers the session token between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RepoTokenStore keeps the token in the local key-value table.
type RepoTokenStore struct {
	repo snapshot.Repository
}

func NewRepoTokenStore(repo snapshot.Repository) *RepoTokenStore {
	return &RepoTokenStore{repo: repo}
}

// Load returns "" when no token is stored.
func (s *RepoTokenStore) Load(ctx context.Context) (string, error) {
	raw, err := s.repo.Get(ctx, common.SessionTokenKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *RepoTokenStore) Save(ctx context.Context, token string) error {
	return s.repo.Set(ctx, common.SessionTokenKey, []byte(token))
}

func (s *RepoTokenStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, common.SessionTokenKey)
}
