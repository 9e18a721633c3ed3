package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/lanetsoft/agent-hub/internal/tokens"
)

const createTokenSQL = `
INSERT INTO installation_tokens (client_id, site_id, token_value, created_by, expires_at, notes)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
RETURNING id::text, client_id::text, site_id::text, token_value, created_by,
          created_at, expires_at, is_active, usage_count, last_used_at, notes`

func (s *Store) CreateToken(ctx context.Context, params tokens.CreateParams) (tokens.Token, error) {
	row := s.pool.QueryRow(ctx, createTokenSQL,
		params.ClientID, params.SiteID, params.Value, params.CreatedBy, params.ExpiresAt, params.Notes)
	return scanToken(row)
}

const getTokenByValueSQL = `
SELECT t.id::text, t.client_id::text, t.site_id::text, t.token_value, t.created_by,
       t.created_at, t.expires_at, t.is_active, t.usage_count, t.last_used_at, t.notes,
       c.name, st.name
FROM installation_tokens t
JOIN clients c ON c.id = t.client_id
JOIN sites st ON st.id = t.site_id
WHERE t.token_value = $1`

func (s *Store) GetTokenByValue(ctx context.Context, value string) (tokens.Token, error) {
	var t tokens.Token
	err := s.pool.QueryRow(ctx, getTokenByValueSQL, value).Scan(
		&t.ID, &t.ClientID, &t.SiteID, &t.Value, &t.CreatedBy,
		&t.CreatedAt, &t.ExpiresAt, &t.IsActive, &t.UsageCount, &t.LastUsedAt, &t.Notes,
		&t.ClientName, &t.SiteName,
	)
	if err != nil {
		return tokens.Token{}, err
	}
	return t, nil
}

const setTokenActiveSQL = `
UPDATE installation_tokens SET is_active = $2 WHERE id = $1::uuid`

func (s *Store) SetTokenActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, setTokenActiveSQL, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const listTokensSQL = `
SELECT t.id::text, t.client_id::text, t.site_id::text, t.token_value, t.created_by,
       t.created_at, t.expires_at, t.is_active, t.usage_count, t.last_used_at, t.notes,
       c.name, st.name
FROM installation_tokens t
JOIN clients c ON c.id = t.client_id
JOIN sites st ON st.id = t.site_id
WHERE (NULLIF($1, '') IS NULL OR t.client_id = NULLIF($1, '')::uuid)
  AND (NULLIF($2, '') IS NULL OR t.site_id = NULLIF($2, '')::uuid)
ORDER BY t.created_at DESC`

func (s *Store) ListTokens(ctx context.Context, clientID, siteID string) ([]tokens.Token, error) {
	rows, err := s.pool.Query(ctx, listTokensSQL, clientID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tokens.Token
	for rows.Next() {
		var t tokens.Token
		if err := rows.Scan(
			&t.ID, &t.ClientID, &t.SiteID, &t.Value, &t.CreatedBy,
			&t.CreatedAt, &t.ExpiresAt, &t.IsActive, &t.UsageCount, &t.LastUsedAt, &t.Notes,
			&t.ClientName, &t.SiteName,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanToken(row pgx.Row) (tokens.Token, error) {
	var t tokens.Token
	err := row.Scan(
		&t.ID, &t.ClientID, &t.SiteID, &t.Value, &t.CreatedBy,
		&t.CreatedAt, &t.ExpiresAt, &t.IsActive, &t.UsageCount, &t.LastUsedAt, &t.Notes,
	)
	if err != nil {
		return tokens.Token{}, err
	}
	return t, nil
}
