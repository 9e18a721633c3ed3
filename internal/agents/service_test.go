package agents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/credentials"
	"github.com/lanetsoft/agent-hub/internal/directory"
	"github.com/lanetsoft/agent-hub/internal/fingerprint"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

// memStore backs the full registration flow in memory, implementing the
// store interfaces of every collaborator.
type memStore struct {
	tokensByValue map[string]tokens.Token
	tokensByID    map[string]tokens.Token
	assets        map[string]assets.Asset
	records       []ledger.InsertParams
}

func newMemStore() *memStore {
	return &memStore{
		tokensByValue: make(map[string]tokens.Token),
		tokensByID:    make(map[string]tokens.Token),
		assets:        make(map[string]assets.Asset),
	}
}

func (m *memStore) CreateToken(_ context.Context, params tokens.CreateParams) (tokens.Token, error) {
	token := tokens.Token{
		ID:        uuid.NewString(),
		ClientID:  params.ClientID,
		SiteID:    params.SiteID,
		Value:     params.Value,
		CreatedBy: params.CreatedBy,
		CreatedAt: time.Now(),
		ExpiresAt: params.ExpiresAt,
		IsActive:  true,
		Notes:     params.Notes,
	}
	m.tokensByValue[token.Value] = token
	m.tokensByID[token.ID] = token
	return token, nil
}

func (m *memStore) GetTokenByValue(_ context.Context, value string) (tokens.Token, error) {
	token, ok := m.tokensByValue[value]
	if !ok {
		return tokens.Token{}, pgx.ErrNoRows
	}
	return token, nil
}

func (m *memStore) SetTokenActive(_ context.Context, id string, active bool) error {
	token, ok := m.tokensByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	token.IsActive = active
	m.tokensByID[id] = token
	m.tokensByValue[token.Value] = token
	return nil
}

func (m *memStore) ListTokens(_ context.Context, _, _ string) ([]tokens.Token, error) {
	var result []tokens.Token
	for _, t := range m.tokensByID {
		result = append(result, t)
	}
	return result, nil
}

func (m *memStore) FindActiveByFingerprint(_ context.Context, clientID, siteID, fp string) (assets.Asset, error) {
	for _, a := range m.assets {
		if a.ClientID == clientID && a.SiteID == siteID && a.Fingerprint == fp && a.Status == assets.StatusActive {
			return a, nil
		}
	}
	return assets.Asset{}, pgx.ErrNoRows
}

func (m *memStore) FindActiveByName(_ context.Context, name string) (assets.Asset, error) {
	for _, a := range m.assets {
		if a.Name == name && a.Status == assets.StatusActive {
			return a, nil
		}
	}
	return assets.Asset{}, pgx.ErrNoRows
}

func (m *memStore) UpsertAsset(_ context.Context, params assets.UpsertParams) (string, bool, error) {
	for _, a := range m.assets {
		if a.ClientID == params.ClientID && a.SiteID == params.SiteID && a.Fingerprint == params.Fingerprint && a.Status == assets.StatusActive {
			a.AgentStatus = assets.AgentStatusOnline
			m.assets[a.ID] = a
			return a.ID, false, nil
		}
	}
	now := time.Now()
	a := assets.Asset{
		ID:                    uuid.NewString(),
		ClientID:              params.ClientID,
		SiteID:                params.SiteID,
		Name:                  params.Name,
		Type:                  params.Type,
		Status:                assets.StatusActive,
		AgentStatus:           assets.AgentStatusOnline,
		Fingerprint:           params.Fingerprint,
		FingerprintConfidence: params.FingerprintConfidence,
		LastSeen:              &now,
		Specifications:        params.Specifications,
	}
	m.assets[a.ID] = a
	return a.ID, true, nil
}

func (m *memStore) UpdateAssetFromRegistration(_ context.Context, id string, params assets.UpdateParams) error {
	a, ok := m.assets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	a.AgentStatus = assets.AgentStatusOnline
	a.LastSeen = &now
	a.Fingerprint = params.Fingerprint
	a.FingerprintConfidence = params.FingerprintConfidence
	a.Specifications = params.Specifications
	m.assets[id] = a
	return nil
}

func (m *memStore) ListAssets(_ context.Context, _, _ string) ([]assets.Asset, error) {
	var result []assets.Asset
	for _, a := range m.assets {
		result = append(result, a)
	}
	return result, nil
}

func (m *memStore) GetTokenIDByValue(_ context.Context, value string) (string, error) {
	token, ok := m.tokensByValue[value]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return token.ID, nil
}

func (m *memStore) InsertUsageRecord(_ context.Context, params ledger.InsertParams) error {
	m.records = append(m.records, params)
	return nil
}

func (m *memStore) IncrementTokenUsage(_ context.Context, tokenID string) error {
	token, ok := m.tokensByID[tokenID]
	if !ok {
		return nil
	}
	token.UsageCount++
	now := time.Now()
	token.LastUsedAt = &now
	m.tokensByID[tokenID] = token
	m.tokensByValue[token.Value] = token
	return nil
}

func (m *memStore) ListUsageRecords(_ context.Context, tokenID string, limit int) ([]ledger.UsageRecord, error) {
	var result []ledger.UsageRecord
	for _, r := range m.records {
		if r.TokenID == tokenID && len(result) < limit {
			result = append(result, ledger.UsageRecord{TokenID: r.TokenID, Success: r.Success})
		}
	}
	return result, nil
}

type staticDirectory struct {
	scope directory.ClientSite
}

func (d *staticDirectory) Lookup(_ context.Context, clientID, siteID string) (directory.ClientSite, error) {
	if clientID != d.scope.ClientID || siteID != d.scope.SiteID {
		return directory.ClientSite{}, directory.ErrScopeNotFound
	}
	return d.scope, nil
}

type harness struct {
	store   *memStore
	service *Service
	issuer  *credentials.Issuer
	token   tokens.Token
	scope   directory.ClientSite
}

func newHarness(t *testing.T, credentialSecret string) *harness {
	t.Helper()

	store := newMemStore()
	scope := directory.ClientSite{
		ClientID:   uuid.NewString(),
		ClientCode: "ACME",
		ClientName: "Acme Corp",
		SiteID:     uuid.NewString(),
		SiteCode:   "HQ",
		SiteName:   "Headquarters",
	}

	token, err := store.CreateToken(context.Background(), tokens.CreateParams{
		ClientID: scope.ClientID,
		SiteID:   scope.SiteID,
		Value:    "LANET-ACME-HQ-7X2K9",
	})
	require.NoError(t, err)

	tokenService := tokens.NewService(store, &staticDirectory{scope: scope})
	issuer := credentials.NewIssuer(credentialSecret)
	service := NewService(
		tokenService,
		assets.NewResolver(store),
		issuer,
		ledger.NewService(store),
		RuntimeConfig{ServerURL: "https://hub.example.com"},
	)

	return &harness{
		store:   store,
		service: service,
		issuer:  issuer,
		token:   token,
		scope:   scope,
	}
}

func ws01Report() fingerprint.Report {
	return fingerprint.Report{
		ComputerName: "WS-01",
		NetworkInterfaces: []fingerprint.NetworkInterface{
			{MACAddress: "AA:BB:CC:DD:EE:FF"},
		},
		Hardware: fingerprint.Hardware{
			CPU:    &fingerprint.CPU{Cores: 8},
			Memory: &fingerprint.Memory{TotalBytes: 17179869184},
		},
	}
}

func TestRegisterAgentNewDevice(t *testing.T) {
	h := newHarness(t, "test-secret")

	result, err := h.service.RegisterAgent(context.Background(), h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")
	require.NoError(t, err)

	assert.False(t, result.ExistingAsset)
	assert.Equal(t, h.scope.ClientID, result.ClientID)
	assert.Equal(t, h.scope.SiteID, result.SiteID)
	assert.Equal(t, "WS-01 (Agent)", h.store.assets[result.AssetID].Name)

	claims, err := h.issuer.Verify(result.Credential)
	require.NoError(t, err)
	assert.Equal(t, result.AssetID, claims.AssetID)
	assert.Equal(t, "agent", claims.Type)

	assert.Equal(t, 1, h.store.tokensByID[h.token.ID].UsageCount)
	require.Len(t, h.store.records, 1)
	assert.True(t, h.store.records[0].Success)

	// Defaults fill the unset interval fields.
	assert.Equal(t, 60, result.Config.HeartbeatInterval)
	assert.Equal(t, "https://hub.example.com", result.Config.ServerURL)
}

func TestRegisterAgentIdempotent(t *testing.T) {
	h := newHarness(t, "test-secret")
	ctx := context.Background()

	first, err := h.service.RegisterAgent(ctx, h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")
	require.NoError(t, err)
	second, err := h.service.RegisterAgent(ctx, h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")
	require.NoError(t, err)

	assert.Equal(t, first.AssetID, second.AssetID)
	assert.False(t, first.ExistingAsset)
	assert.True(t, second.ExistingAsset)
	assert.Len(t, h.store.assets, 1)
	assert.Equal(t, 2, h.store.tokensByID[h.token.ID].UsageCount)
}

func TestRegisterAgentHardwareChangeFallsBackToName(t *testing.T) {
	h := newHarness(t, "test-secret")
	ctx := context.Background()

	first, err := h.service.RegisterAgent(ctx, h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")
	require.NoError(t, err)

	// RAM upgrade: the fingerprint changes while the agent still reports
	// the same raw computer name. The name fallback must find the asset
	// stored under the derived display name and update it in place.
	upgraded := ws01Report()
	upgraded.Hardware.Memory = &fingerprint.Memory{TotalBytes: 34359738368}

	second, err := h.service.RegisterAgent(ctx, h.token.Value, upgraded, "203.0.113.7", "lanet-agent/2.1")
	require.NoError(t, err)

	assert.Equal(t, first.AssetID, second.AssetID)
	assert.True(t, second.ExistingAsset)
	assert.Len(t, h.store.assets, 1)

	updated := h.store.assets[first.AssetID]
	assert.Equal(t, fingerprint.Compute(upgraded).Hash, updated.Fingerprint)
}

func TestRegisterAgentUnknownToken(t *testing.T) {
	h := newHarness(t, "test-secret")

	_, err := h.service.RegisterAgent(context.Background(), "LANET-ACME-HQ-NOPE", ws01Report(), "203.0.113.7", "lanet-agent/2.1")

	var tokenErr *TokenInvalidError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, tokens.MsgTokenNotFound, tokenErr.Message)
	assert.Empty(t, h.store.assets)
}

func TestRegisterAgentInactiveToken(t *testing.T) {
	h := newHarness(t, "test-secret")
	ctx := context.Background()

	require.NoError(t, h.store.SetTokenActive(ctx, h.token.ID, false))

	_, err := h.service.RegisterAgent(ctx, h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")

	var tokenErr *TokenInvalidError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, tokens.MsgTokenInactive, tokenErr.Message)

	// The failed attempt is still in the ledger and did not count usage.
	require.Len(t, h.store.records, 1)
	assert.False(t, h.store.records[0].Success)
	assert.Equal(t, 0, h.store.tokensByID[h.token.ID].UsageCount)
}

func TestRegisterAgentSigningFailure(t *testing.T) {
	h := newHarness(t, "") // no credential secret configured

	_, err := h.service.RegisterAgent(context.Background(), h.token.Value, ws01Report(), "203.0.113.7", "lanet-agent/2.1")

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.NotEmpty(t, regErr.CorrelationID)

	// The detailed reason lands in the ledger; usage is not counted.
	require.Len(t, h.store.records, 1)
	assert.False(t, h.store.records[0].Success)
	assert.Contains(t, h.store.records[0].ErrorMessage, "credential signing failed")
	assert.Equal(t, 0, h.store.tokensByID[h.token.ID].UsageCount)
}

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := RuntimeConfig{}.withDefaults()

	assert.Equal(t, 60, cfg.HeartbeatInterval)
	assert.Equal(t, 3600, cfg.InventoryInterval)
	assert.Equal(t, 300, cfg.MetricsInterval)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
}
