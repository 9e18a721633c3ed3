package agents

// RuntimeConfig is what a freshly registered agent runs with:
// reporting intervals in seconds plus the server base URL. Values come
// from server configuration, with fixed fallbacks when a field is
// absent.
type RuntimeConfig struct {
	HeartbeatInterval int    `json:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	InventoryInterval int    `json:"inventory_interval" mapstructure:"inventory_interval"`
	MetricsInterval   int    `json:"metrics_interval" mapstructure:"metrics_interval"`
	ServerURL         string `json:"server_url" mapstructure:"server_url"`
}

const (
	defaultHeartbeatInterval = 60
	defaultInventoryInterval = 3600
	defaultMetricsInterval   = 300
	defaultServerURL         = "http://localhost:8080"
)

func (c RuntimeConfig) withDefaults() RuntimeConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.InventoryInterval <= 0 {
		c.InventoryInterval = defaultInventoryInterval
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = defaultMetricsInterval
	}
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	return c
}

// RegistrationResult is the full handshake response for a successfully
// registered agent.
type RegistrationResult struct {
	AssetID       string
	ClientID      string
	SiteID        string
	Credential    string
	Config        RuntimeConfig
	ExistingAsset bool
}

// TokenInvalidError carries the pre-composed validation message for an
// installation token the installer can show verbatim.
type TokenInvalidError struct {
	Message string
}

func (e *TokenInvalidError) Error() string {
	return e.Message
}

// RegistrationError is the generic failure surfaced for anything that
// goes wrong downstream of a valid token. The detailed cause stays in
// the server log and the usage ledger, keyed by the correlation ID.
type RegistrationError struct {
	CorrelationID string
}

func (e *RegistrationError) Error() string {
	return "agent registration failed"
}
