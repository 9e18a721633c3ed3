// Package tokens issues and validates installation tokens.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lanetsoft/agent-hub/internal/directory"
)

var (
	ErrInvalidScope  = errors.New("client and site are not a valid linked pair")
	ErrTokenNotFound = errors.New("installation token not found")
)

// createAttempts bounds the retry loop on a token-value collision. The
// random segment makes a collision vanishingly rare; one retry is
// already generous.
const createAttempts = 3

type CreateParams struct {
	ClientID  string
	SiteID    string
	Value     string
	CreatedBy string
	ExpiresAt *time.Time
	Notes     string
}

type Store interface {
	CreateToken(ctx context.Context, params CreateParams) (Token, error)
	GetTokenByValue(ctx context.Context, value string) (Token, error)
	SetTokenActive(ctx context.Context, id string, active bool) error
	ListTokens(ctx context.Context, clientID, siteID string) ([]Token, error)
}

// Directory is the organization-directory collaborator used to check
// that a (client, site) pair is real and linked.
type Directory interface {
	Lookup(ctx context.Context, clientID, siteID string) (directory.ClientSite, error)
}

type Service struct {
	store     Store
	directory Directory
	now       func() time.Time
}

func NewService(store Store, dir Directory) *Service {
	return &Service{
		store:     store,
		directory: dir,
		now:       time.Now,
	}
}

// Create issues a new installation token scoped to (clientID, siteID).
// expiresDays <= 0 means the token never expires.
func (s *Service) Create(ctx context.Context, clientID, siteID, createdBy string, expiresDays int, notes string) (*Token, error) {
	scope, err := s.directory.Lookup(ctx, clientID, siteID)
	if err != nil {
		if errors.Is(err, directory.ErrScopeNotFound) {
			return nil, ErrInvalidScope
		}
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	var expiresAt *time.Time
	if expiresDays > 0 {
		t := s.now().Add(time.Duration(expiresDays) * 24 * time.Hour)
		expiresAt = &t
	}

	for attempt := 1; ; attempt++ {
		value, err := GenerateValue(scope.ClientCode, scope.SiteCode)
		if err != nil {
			return nil, err
		}

		token, err := s.store.CreateToken(ctx, CreateParams{
			ClientID:  clientID,
			SiteID:    siteID,
			Value:     value,
			CreatedBy: createdBy,
			ExpiresAt: expiresAt,
			Notes:     notes,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && attempt < createAttempts {
				slog.Warn("Installation token value collision, retrying", "attempt", attempt)
				continue
			}
			return nil, fmt.Errorf("store token: %w", err)
		}

		token.ClientName = scope.ClientName
		token.SiteName = scope.SiteName

		slog.Info("Installation token created",
			"token_id", token.ID,
			"client_id", clientID,
			"site_id", siteID,
			"created_by", createdBy,
			"expires_at", token.ExpiresAt)
		return &token, nil
	}
}

// Validate checks a token value and reports the outcome as data. It
// never touches usage_count: counting happens only when a registration
// completes, so installer pre-flight checks do not inflate usage.
func (s *Service) Validate(ctx context.Context, value string) (ValidationResult, error) {
	token, err := s.store.GetTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ValidationResult{IsValid: false, ErrorMessage: MsgTokenNotFound}, nil
		}
		return ValidationResult{}, fmt.Errorf("lookup token: %w", err)
	}

	if !token.IsActive {
		return ValidationResult{IsValid: false, ErrorMessage: MsgTokenInactive}, nil
	}
	if token.ExpiresAt != nil && !s.now().Before(*token.ExpiresAt) {
		return ValidationResult{IsValid: false, ErrorMessage: MsgTokenExpired}, nil
	}

	return ValidationResult{
		IsValid:  true,
		ClientID: token.ClientID,
		SiteID:   token.SiteID,
	}, nil
}

// UpdateStatus enables or disables a token. Toggling to the current
// state is a no-op; an unknown ID is an error.
func (s *Service) UpdateStatus(ctx context.Context, tokenID string, isActive bool) error {
	if _, err := uuid.Parse(tokenID); err != nil {
		return ErrTokenNotFound
	}

	if err := s.store.SetTokenActive(ctx, tokenID, isActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("update token status: %w", err)
	}

	slog.Info("Installation token status updated", "token_id", tokenID, "is_active", isActive)
	return nil
}

// List returns tokens, optionally filtered by client and/or site.
func (s *Service) List(ctx context.Context, clientID, siteID string) ([]Token, error) {
	list, err := s.store.ListTokens(ctx, clientID, siteID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return list, nil
}
