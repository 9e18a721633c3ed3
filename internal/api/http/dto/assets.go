package dto

import "time"

type AssetResponse struct {
	ID                    string         `json:"id"`
	ClientID              string         `json:"client_id"`
	SiteID                string         `json:"site_id"`
	Name                  string         `json:"name"`
	Type                  string         `json:"type"`
	Status                string         `json:"status"`
	AgentStatus           string         `json:"agent_status"`
	Fingerprint           string         `json:"fingerprint"`
	FingerprintConfidence string         `json:"fingerprint_confidence"`
	LastSeen              *time.Time     `json:"last_seen,omitempty"`
	Specifications        map[string]any `json:"specifications,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

type ListAssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
	Count  int             `json:"count"`
}
