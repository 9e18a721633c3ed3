// Package assets reconciles incoming registrations against known
// devices and maintains the asset records.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lanetsoft/agent-hub/internal/fingerprint"
)

type UpsertParams struct {
	ClientID              string
	SiteID                string
	Name                  string
	Type                  string
	Fingerprint           string
	FingerprintConfidence string
	Specifications        map[string]any
}

type UpdateParams struct {
	Fingerprint           string
	FingerprintConfidence string
	Specifications        map[string]any
}

type Store interface {
	FindActiveByFingerprint(ctx context.Context, clientID, siteID, fp string) (Asset, error)
	FindActiveByName(ctx context.Context, name string) (Asset, error)
	// UpsertAsset inserts a new asset. When a concurrent registration
	// already inserted the same (client, site, fingerprint) row, it
	// merges into that row instead. One atomic statement, no
	// check-then-insert window.
	UpsertAsset(ctx context.Context, params UpsertParams) (id string, inserted bool, err error)
	UpdateAssetFromRegistration(ctx context.Context, id string, params UpdateParams) error
	ListAssets(ctx context.Context, clientID, siteID string) ([]Asset, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve finds the existing asset a registration belongs to, or nil
// when the device is new. Matching is two-tier:
//
//  1. an active asset in the same (client, site) scope with the same
//     fingerprint; scoping keeps fingerprint collisions from leaking
//     across tenants;
//  2. failing that, an active asset anywhere whose name equals the
//     display name this registration would be assigned. This
//     deliberately weaker match smooths over hardware changes and
//     pre-fingerprint devices, at the documented cost that a different
//     machine recycling a computer name can be mis-attributed.
func (r *Resolver) Resolve(ctx context.Context, fp, clientID, siteID, computerName string) (*Asset, error) {
	asset, err := r.store.FindActiveByFingerprint(ctx, clientID, siteID, fp)
	if err == nil {
		return &asset, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find asset by fingerprint: %w", err)
	}

	if computerName == "" {
		return nil, nil
	}

	// Assets are stored under the derived display name, so the lookup
	// must derive it the same way the insert path does. Matching the
	// raw computer name would never hit an agent-created asset.
	displayName := defaultName(computerName)
	asset, err = r.store.FindActiveByName(ctx, displayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find asset by name: %w", err)
	}

	slog.Info("Asset matched by name fallback",
		"asset_id", asset.ID,
		"name", displayName,
		"stored_fingerprint", asset.Fingerprint,
		"incoming_fingerprint", fp)
	return &asset, nil
}

// CreateOrUpdate applies a registration to the resolved asset, or
// inserts a new one. The identity key here is derived and heuristic:
// disk or NIC swaps and re-imaging change it, and that trade-off is
// accepted rather than serializing registrations behind a lock.
func (r *Resolver) CreateOrUpdate(ctx context.Context, resolved *Asset, report fingerprint.Report, fp fingerprint.Fingerprint, clientID, siteID string) (string, bool, error) {
	if resolved != nil {
		specs := mergeSpecifications(resolved.Specifications, reportSpecifications(report, fp))

		err := r.store.UpdateAssetFromRegistration(ctx, resolved.ID, UpdateParams{
			Fingerprint:           fp.Hash,
			FingerprintConfidence: string(fp.Confidence),
			Specifications:        specs,
		})
		if err != nil {
			return "", false, fmt.Errorf("update asset %s: %w", resolved.ID, err)
		}
		return resolved.ID, true, nil
	}

	specs := reportSpecifications(report, fp)
	specs["registered_at"] = time.Now().UTC().Format(time.RFC3339)

	id, inserted, err := r.store.UpsertAsset(ctx, UpsertParams{
		ClientID:              clientID,
		SiteID:                siteID,
		Name:                  defaultName(report.ComputerName),
		Type:                  DefaultType,
		Fingerprint:           fp.Hash,
		FingerprintConfidence: string(fp.Confidence),
		Specifications:        specs,
	})
	if err != nil {
		return "", false, fmt.Errorf("insert asset: %w", err)
	}
	if !inserted {
		// A concurrent registration for the same device won the insert.
		slog.Info("Concurrent registration collapsed into existing asset", "asset_id", id)
	}
	return id, !inserted, nil
}

// List returns assets, optionally filtered by client and/or site.
func (r *Resolver) List(ctx context.Context, clientID, siteID string) ([]Asset, error) {
	list, err := r.store.ListAssets(ctx, clientID, siteID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return list, nil
}

// reportSpecifications flattens the hardware report into the
// specifications document and stamps the fingerprint into it.
func reportSpecifications(report fingerprint.Report, fp fingerprint.Fingerprint) map[string]any {
	specs := make(map[string]any)
	if raw, err := json.Marshal(report); err == nil {
		_ = json.Unmarshal(raw, &specs)
	}
	specs["fingerprint"] = fp.Hash
	specs["fingerprint_confidence"] = string(fp.Confidence)
	return specs
}

// mergeSpecifications shallow-merges incoming keys over the stored
// document: new values win, keys the report did not touch survive.
func mergeSpecifications(old, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(old)+len(incoming))
	for k, v := range old {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

func defaultName(computerName string) string {
	if computerName == "" {
		computerName = "Unknown Device"
	}
	return computerName + " (Agent)"
}
