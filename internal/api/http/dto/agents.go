package dto

import (
	"github.com/lanetsoft/agent-hub/internal/fingerprint"
)

type ValidateTokenRequest struct {
	TokenValue string `json:"token_value" binding:"required"`
}

// ValidateTokenResponse mirrors the validation outcome exactly: the
// installer shows error_message verbatim.
type ValidateTokenResponse struct {
	IsValid      bool   `json:"is_valid"`
	ClientID     string `json:"client_id,omitempty"`
	SiteID       string `json:"site_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type RegisterAgentRequest struct {
	TokenValue string             `json:"token_value" binding:"required"`
	Hardware   fingerprint.Report `json:"hardware" binding:"required"`
}

type AgentConfigResponse struct {
	HeartbeatInterval int    `json:"heartbeat_interval"`
	InventoryInterval int    `json:"inventory_interval"`
	MetricsInterval   int    `json:"metrics_interval"`
	ServerURL         string `json:"server_url"`
}

type RegisterAgentResponse struct {
	AssetID       string              `json:"asset_id"`
	ClientID      string              `json:"client_id"`
	SiteID        string              `json:"site_id"`
	Credential    string              `json:"credential"`
	Config        AgentConfigResponse `json:"config"`
	ExistingAsset bool                `json:"existing_asset"`
}

type RegistrationFailureResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
