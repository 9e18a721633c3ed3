package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lanetsoft/agent-hub/internal/assets"
)

const assetColumns = `a.id::text, a.client_id::text, a.site_id::text, a.name, a.type,
       a.status, a.agent_status, a.fingerprint, a.fingerprint_confidence,
       a.last_seen, a.specifications, a.created_at`

const findAssetByFingerprintSQL = `
SELECT ` + assetColumns + `
FROM assets a
WHERE a.client_id = $1::uuid AND a.site_id = $2::uuid
  AND a.fingerprint = $3 AND a.status = 'active'
LIMIT 1`

func (s *Store) FindActiveByFingerprint(ctx context.Context, clientID, siteID, fp string) (assets.Asset, error) {
	return scanAsset(s.pool.QueryRow(ctx, findAssetByFingerprintSQL, clientID, siteID, fp))
}

const findAssetByNameSQL = `
SELECT ` + assetColumns + `
FROM assets a
WHERE a.name = $1 AND a.status = 'active'
ORDER BY a.last_seen DESC NULLS LAST
LIMIT 1`

func (s *Store) FindActiveByName(ctx context.Context, name string) (assets.Asset, error) {
	return scanAsset(s.pool.QueryRow(ctx, findAssetByNameSQL, name))
}

// upsertAssetSQL collapses check-then-insert into one statement: when a
// concurrent registration already inserted the same (client, site,
// fingerprint) row, the conflict arm merges into it instead of
// duplicating. The conflict target carries the partial-index predicate,
// so only active rows conflict and a retired asset is never resurrected
// by a fresh registration. xmax = 0 distinguishes a fresh insert from
// the merge.
const upsertAssetSQL = `
INSERT INTO assets (client_id, site_id, name, type, status, agent_status,
                    fingerprint, fingerprint_confidence, last_seen, specifications)
VALUES ($1::uuid, $2::uuid, $3, $4, 'active', 'online', $5, $6, now(), $7)
ON CONFLICT (client_id, site_id, fingerprint) WHERE status = 'active' DO UPDATE
SET agent_status = 'online',
    last_seen = now(),
    fingerprint_confidence = EXCLUDED.fingerprint_confidence,
    specifications = assets.specifications || EXCLUDED.specifications
RETURNING id::text, (xmax = 0)`

func (s *Store) UpsertAsset(ctx context.Context, params assets.UpsertParams) (string, bool, error) {
	specs, err := json.Marshal(params.Specifications)
	if err != nil {
		return "", false, fmt.Errorf("marshal specifications: %w", err)
	}

	var (
		id       string
		inserted bool
	)
	err = s.pool.QueryRow(ctx, upsertAssetSQL,
		params.ClientID, params.SiteID, params.Name, params.Type,
		params.Fingerprint, params.FingerprintConfidence, specs,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

const updateAssetSQL = `
UPDATE assets
SET agent_status = 'online',
    last_seen = now(),
    fingerprint = $2,
    fingerprint_confidence = $3,
    specifications = $4
WHERE id = $1::uuid`

func (s *Store) UpdateAssetFromRegistration(ctx context.Context, id string, params assets.UpdateParams) error {
	specs, err := json.Marshal(params.Specifications)
	if err != nil {
		return fmt.Errorf("marshal specifications: %w", err)
	}

	tag, err := s.pool.Exec(ctx, updateAssetSQL, id, params.Fingerprint, params.FingerprintConfidence, specs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const listAssetsSQL = `
SELECT ` + assetColumns + `
FROM assets a
WHERE (NULLIF($1, '') IS NULL OR a.client_id = NULLIF($1, '')::uuid)
  AND (NULLIF($2, '') IS NULL OR a.site_id = NULLIF($2, '')::uuid)
ORDER BY a.created_at DESC`

func (s *Store) ListAssets(ctx context.Context, clientID, siteID string) ([]assets.Asset, error) {
	rows, err := s.pool.Query(ctx, listAssetsSQL, clientID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []assets.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAsset(row pgx.Row) (assets.Asset, error) {
	var (
		a     assets.Asset
		specs []byte
	)
	err := row.Scan(
		&a.ID, &a.ClientID, &a.SiteID, &a.Name, &a.Type,
		&a.Status, &a.AgentStatus, &a.Fingerprint, &a.FingerprintConfidence,
		&a.LastSeen, &specs, &a.CreatedAt,
	)
	if err != nil {
		return assets.Asset{}, err
	}
	if len(specs) > 0 {
		_ = json.Unmarshal(specs, &a.Specifications)
	}
	return a, nil
}
