package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lanetsoft/agent-hub/internal/ledger"
)

const getTokenIDByValueSQL = `
SELECT id::text FROM installation_tokens WHERE token_value = $1`

func (s *Store) GetTokenIDByValue(ctx context.Context, value string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, getTokenIDByValueSQL, value).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

const insertUsageRecordSQL = `
INSERT INTO token_usage_logs (token_id, ip_address, user_agent, computer_name,
                              hardware_snapshot, success, asset_id, error_message)
VALUES ($1::uuid, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, NULLIF($8, ''))`

func (s *Store) InsertUsageRecord(ctx context.Context, params ledger.InsertParams) error {
	snapshot, err := json.Marshal(params.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal hardware snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, insertUsageRecordSQL,
		params.TokenID, params.IPAddress, params.UserAgent, params.ComputerName,
		snapshot, params.Success, params.AssetID, params.ErrorMessage)
	return err
}

// incrementTokenUsageSQL is deliberately a single UPDATE: concurrent
// registrations against the same token must not lose counts to a
// read-modify-write.
const incrementTokenUsageSQL = `
UPDATE installation_tokens
SET usage_count = usage_count + 1, last_used_at = now()
WHERE id = $1::uuid`

func (s *Store) IncrementTokenUsage(ctx context.Context, tokenID string) error {
	_, err := s.pool.Exec(ctx, incrementTokenUsageSQL, tokenID)
	return err
}

const listUsageRecordsSQL = `
SELECT id::text, token_id::text, ip_address, user_agent, computer_name,
       hardware_snapshot, success, asset_id::text, error_message, created_at
FROM token_usage_logs
WHERE token_id = $1::uuid
ORDER BY created_at DESC
LIMIT $2`

func (s *Store) ListUsageRecords(ctx context.Context, tokenID string, limit int) ([]ledger.UsageRecord, error) {
	rows, err := s.pool.Query(ctx, listUsageRecordsSQL, tokenID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.UsageRecord
	for rows.Next() {
		var (
			r        ledger.UsageRecord
			snapshot []byte
		)
		if err := rows.Scan(
			&r.ID, &r.TokenID, &r.IPAddress, &r.UserAgent, &r.ComputerName,
			&snapshot, &r.Success, &r.AssetID, &r.ErrorMessage, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(snapshot) > 0 {
			_ = json.Unmarshal(snapshot, &r.Snapshot)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
