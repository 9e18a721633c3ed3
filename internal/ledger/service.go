// Package ledger keeps the append-only audit trail of registration
// attempts and maintains the usage counters on installation tokens.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

type InsertParams struct {
	TokenID      string
	IPAddress    string
	UserAgent    string
	ComputerName string
	Snapshot     map[string]any
	Success      bool
	AssetID      string
	ErrorMessage string
}

type Store interface {
	GetTokenIDByValue(ctx context.Context, value string) (string, error)
	InsertUsageRecord(ctx context.Context, params InsertParams) error
	// IncrementTokenUsage bumps usage_count and last_used_at in one
	// conditional UPDATE, so concurrent registrations against the same
	// token never lose a count.
	IncrementTokenUsage(ctx context.Context, tokenID string) error
	ListUsageRecords(ctx context.Context, tokenID string, limit int) ([]UsageRecord, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record writes one attempt to the ledger. It is best-effort and never
// fails the registration it is auditing: if the token row vanished
// between validation and here, the write is skipped; any other store
// problem is logged and swallowed. On a successful attempt the token's
// usage counter is also incremented.
func (s *Service) Record(ctx context.Context, e Entry) {
	tokenID, err := s.store.GetTokenIDByValue(ctx, e.TokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			slog.Debug("Skipping usage record for unknown token")
			return
		}
		slog.Warn("Failed to resolve token for usage record", "error", err)
		return
	}

	snapshot := make(map[string]any)
	// The snapshot is stored as submitted; a marshal failure of an
	// already-decoded report cannot realistically happen.
	if raw, err := marshalReport(e.Snapshot); err == nil {
		snapshot = raw
	}

	if err := s.store.InsertUsageRecord(ctx, InsertParams{
		TokenID:      tokenID,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		ComputerName: e.ComputerName,
		Snapshot:     snapshot,
		Success:      e.Success,
		AssetID:      e.AssetID,
		ErrorMessage: e.ErrorMessage,
	}); err != nil {
		slog.Warn("Failed to write usage record", "error", err, "token_id", tokenID)
		return
	}

	if e.Success {
		if err := s.store.IncrementTokenUsage(ctx, tokenID); err != nil {
			slog.Warn("Failed to increment token usage", "error", err, "token_id", tokenID)
		}
	}
}

// History returns the most recent usage records for a token.
func (s *Service) History(ctx context.Context, tokenID string, limit int) ([]UsageRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListUsageRecords(ctx, tokenID, limit)
}
