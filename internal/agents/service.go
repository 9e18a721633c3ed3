// Package agents runs the one-time registration handshake that turns an
// installation token plus a hardware report into an asset record and an
// agent credential.
package agents

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/credentials"
	"github.com/lanetsoft/agent-hub/internal/fingerprint"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

type Service struct {
	tokens   *tokens.Service
	resolver *assets.Resolver
	issuer   *credentials.Issuer
	ledger   *ledger.Service
	runtime  RuntimeConfig
}

func NewService(tokenService *tokens.Service, resolver *assets.Resolver, issuer *credentials.Issuer, ledgerService *ledger.Service, runtime RuntimeConfig) *Service {
	return &Service{
		tokens:   tokenService,
		resolver: resolver,
		issuer:   issuer,
		ledger:   ledgerService,
		runtime:  runtime.withDefaults(),
	}
}

// RegisterAgent is the handshake: validate the token, fingerprint the
// report, reconcile it against known assets, mint a credential and write
// the ledger. Registering the same machine twice updates the existing
// asset instead of creating a duplicate.
func (s *Service) RegisterAgent(ctx context.Context, tokenValue string, report fingerprint.Report, ip, userAgent string) (*RegistrationResult, error) {
	validation, err := s.tokens.Validate(ctx, tokenValue)
	if err != nil {
		return nil, s.fail(ctx, tokenValue, report, ip, userAgent, "", "token lookup failed", err)
	}
	if !validation.IsValid {
		slog.Warn("Registration with invalid installation token",
			"reason", validation.ErrorMessage,
			"remote_ip", ip,
			"computer_name", report.ComputerName)
		s.ledger.Record(ctx, ledger.Entry{
			TokenValue:   tokenValue,
			IPAddress:    ip,
			UserAgent:    userAgent,
			ComputerName: report.ComputerName,
			Snapshot:     report,
			Success:      false,
			ErrorMessage: validation.ErrorMessage,
		})
		return nil, &TokenInvalidError{Message: validation.ErrorMessage}
	}

	fp := fingerprint.Compute(report)
	if fp.Confidence == fingerprint.ConfidenceWeak {
		slog.Warn("Hardware report yielded a weak fingerprint",
			"computer_name", report.ComputerName,
			"remote_ip", ip)
	}

	resolved, err := s.resolver.Resolve(ctx, fp.Hash, validation.ClientID, validation.SiteID, report.ComputerName)
	if err != nil {
		return nil, s.fail(ctx, tokenValue, report, ip, userAgent, "", "asset resolution failed", err)
	}

	assetID, existing, err := s.resolver.CreateOrUpdate(ctx, resolved, report, fp, validation.ClientID, validation.SiteID)
	if err != nil {
		return nil, s.fail(ctx, tokenValue, report, ip, userAgent, "", "asset upsert failed", err)
	}

	credential, err := s.issuer.Issue(assetID, validation.ClientID, validation.SiteID)
	if err != nil {
		return nil, s.fail(ctx, tokenValue, report, ip, userAgent, assetID, "credential signing failed", err)
	}

	s.ledger.Record(ctx, ledger.Entry{
		TokenValue:   tokenValue,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ComputerName: report.ComputerName,
		Snapshot:     report,
		Success:      true,
		AssetID:      assetID,
	})

	slog.Info("Agent registered",
		"asset_id", assetID,
		"client_id", validation.ClientID,
		"site_id", validation.SiteID,
		"existing_asset", existing,
		"fingerprint_confidence", fp.Confidence,
		"remote_ip", ip)

	return &RegistrationResult{
		AssetID:       assetID,
		ClientID:      validation.ClientID,
		SiteID:        validation.SiteID,
		Credential:    credential,
		Config:        s.runtime,
		ExistingAsset: existing,
	}, nil
}

// fail records an infrastructure failure with its full context
// server-side and returns the generic error carrying only a correlation
// reference.
func (s *Service) fail(ctx context.Context, tokenValue string, report fingerprint.Report, ip, userAgent, assetID, reason string, err error) error {
	correlationID := uuid.NewString()

	slog.Error("Agent registration failed",
		"error", err,
		"reason", reason,
		"correlation_id", correlationID,
		"computer_name", report.ComputerName,
		"remote_ip", ip)

	s.ledger.Record(ctx, ledger.Entry{
		TokenValue:   tokenValue,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ComputerName: report.ComputerName,
		Snapshot:     report,
		Success:      false,
		AssetID:      assetID,
		ErrorMessage: reason + ": " + err.Error(),
	})

	return &RegistrationError{CorrelationID: correlationID}
}
