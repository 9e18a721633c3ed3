// Package directory is the read-only view over the organization
// structure (clients and their sites). Client and site management lives
// in a separate system; this service only answers "is this pair real
// and linked" and resolves codes and display names.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrScopeNotFound = errors.New("client/site pair not found")

type Store interface {
	GetClientSite(ctx context.Context, clientID, siteID string) (ClientSite, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Lookup resolves a (client_id, site_id) pair, requiring the site to be
// linked to the client and both to be active.
func (s *Service) Lookup(ctx context.Context, clientID, siteID string) (ClientSite, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return ClientSite{}, ErrScopeNotFound
	}
	if _, err := uuid.Parse(siteID); err != nil {
		return ClientSite{}, ErrScopeNotFound
	}

	cs, err := s.store.GetClientSite(ctx, clientID, siteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientSite{}, ErrScopeNotFound
		}
		return ClientSite{}, fmt.Errorf("lookup client/site: %w", err)
	}
	return cs, nil
}
