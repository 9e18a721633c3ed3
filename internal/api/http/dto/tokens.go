package dto

import "time"

type CreateInstallationTokenRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	SiteID      string `json:"site_id" binding:"required"`
	ExpiresDays int    `json:"expires_days"` // 0 or absent = never expires
	Notes       string `json:"notes"`
}

type InstallationTokenResponse struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"client_id"`
	SiteID     string     `json:"site_id"`
	ClientName string     `json:"client_name,omitempty"`
	SiteName   string     `json:"site_name,omitempty"`
	TokenValue string     `json:"token_value"`
	CreatedBy  string     `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	UsageCount int        `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

type ListInstallationTokensResponse struct {
	Tokens []InstallationTokenResponse `json:"tokens"`
}

type UpdateTokenStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type UsageRecordResponse struct {
	ID           string         `json:"id"`
	TokenID      string         `json:"token_id"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	ComputerName string         `json:"computer_name,omitempty"`
	Snapshot     map[string]any `json:"hardware_snapshot,omitempty"`
	Success      bool           `json:"success"`
	AssetID      *string        `json:"asset_id,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ListUsageRecordsResponse struct {
	Records []UsageRecordResponse `json:"records"`
}
