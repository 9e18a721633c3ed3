package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanetsoft/agent-hub/internal/agents"
	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/credentials"
	"github.com/lanetsoft/agent-hub/internal/directory"
	"github.com/lanetsoft/agent-hub/internal/fingerprint"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testTokenValue = "LANET-ACME-HQ-AB12CD34"

// registrationStore is the in-memory backing for the full registration
// wiring behind the handler.
type registrationStore struct {
	scope         directory.ClientSite
	tokensByValue map[string]tokens.Token
	tokensByID    map[string]tokens.Token
	assets        map[string]assets.Asset
	records       []ledger.InsertParams
}

func newRegistrationStore() *registrationStore {
	s := &registrationStore{
		scope: directory.ClientSite{
			ClientID:   uuid.NewString(),
			ClientCode: "ACME",
			ClientName: "Acme Corp",
			SiteID:     uuid.NewString(),
			SiteCode:   "HQ",
			SiteName:   "Headquarters",
		},
		tokensByValue: make(map[string]tokens.Token),
		tokensByID:    make(map[string]tokens.Token),
		assets:        make(map[string]assets.Asset),
	}
	token := tokens.Token{
		ID:       uuid.NewString(),
		ClientID: s.scope.ClientID,
		SiteID:   s.scope.SiteID,
		Value:    testTokenValue,
		IsActive: true,
	}
	s.tokensByValue[token.Value] = token
	s.tokensByID[token.ID] = token
	return s
}

func (s *registrationStore) CreateToken(_ context.Context, params tokens.CreateParams) (tokens.Token, error) {
	token := tokens.Token{
		ID:       uuid.NewString(),
		ClientID: params.ClientID,
		SiteID:   params.SiteID,
		Value:    params.Value,
		IsActive: true,
	}
	s.tokensByValue[token.Value] = token
	s.tokensByID[token.ID] = token
	return token, nil
}

func (s *registrationStore) GetTokenByValue(_ context.Context, value string) (tokens.Token, error) {
	token, ok := s.tokensByValue[value]
	if !ok {
		return tokens.Token{}, pgx.ErrNoRows
	}
	return token, nil
}

func (s *registrationStore) SetTokenActive(_ context.Context, id string, active bool) error {
	token, ok := s.tokensByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	token.IsActive = active
	s.tokensByID[id] = token
	s.tokensByValue[token.Value] = token
	return nil
}

func (s *registrationStore) ListTokens(_ context.Context, _, _ string) ([]tokens.Token, error) {
	var result []tokens.Token
	for _, t := range s.tokensByID {
		result = append(result, t)
	}
	return result, nil
}

func (s *registrationStore) Lookup(_ context.Context, clientID, siteID string) (directory.ClientSite, error) {
	if clientID != s.scope.ClientID || siteID != s.scope.SiteID {
		return directory.ClientSite{}, directory.ErrScopeNotFound
	}
	return s.scope, nil
}

func (s *registrationStore) FindActiveByFingerprint(_ context.Context, clientID, siteID, fp string) (assets.Asset, error) {
	for _, a := range s.assets {
		if a.ClientID == clientID && a.SiteID == siteID && a.Fingerprint == fp {
			return a, nil
		}
	}
	return assets.Asset{}, pgx.ErrNoRows
}

func (s *registrationStore) FindActiveByName(_ context.Context, name string) (assets.Asset, error) {
	for _, a := range s.assets {
		if a.Name == name {
			return a, nil
		}
	}
	return assets.Asset{}, pgx.ErrNoRows
}

func (s *registrationStore) UpsertAsset(_ context.Context, params assets.UpsertParams) (string, bool, error) {
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
		Specifications:        params.Specifications,
	}
	s.assets[a.ID] = a
	return a.ID, true, nil
}

func (s *registrationStore) UpdateAssetFromRegistration(_ context.Context, id string, params assets.UpdateParams) error {
	a, ok := s.assets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	a.LastSeen = &now
	a.Fingerprint = params.Fingerprint
	a.FingerprintConfidence = params.FingerprintConfidence
	a.Specifications = params.Specifications
	s.assets[id] = a
	return nil
}

func (s *registrationStore) ListAssets(_ context.Context, _, _ string) ([]assets.Asset, error) {
	var result []assets.Asset
	for _, a := range s.assets {
		result = append(result, a)
	}
	return result, nil
}

func (s *registrationStore) GetTokenIDByValue(_ context.Context, value string) (string, error) {
	token, ok := s.tokensByValue[value]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return token.ID, nil
}

func (s *registrationStore) InsertUsageRecord(_ context.Context, params ledger.InsertParams) error {
	s.records = append(s.records, params)
	return nil
}

func (s *registrationStore) IncrementTokenUsage(_ context.Context, tokenID string) error {
	token, ok := s.tokensByID[tokenID]
	if !ok {
		return nil
	}
	token.UsageCount++
	s.tokensByID[tokenID] = token
	s.tokensByValue[token.Value] = token
	return nil
}

func (s *registrationStore) ListUsageRecords(_ context.Context, _ string, _ int) ([]ledger.UsageRecord, error) {
	return nil, nil
}

func setupAgentsRouter(credentialSecret string) (*gin.Engine, *registrationStore) {
	store := newRegistrationStore()
	tokenService := tokens.NewService(store, store)
	agentService := agents.NewService(
		tokenService,
		assets.NewResolver(store),
		credentials.NewIssuer(credentialSecret),
		ledger.NewService(store),
		agents.RuntimeConfig{ServerURL: "https://hub.example.com"},
	)
	h := NewAgentsHandler(agentService, tokenService)

	r := gin.New()
	r.POST("/api/v1/agents/validate-token", h.ValidateToken)
	r.POST("/api/v1/agents/register", h.Register)
	return r, store
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testHardwareReport() fingerprint.Report {
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

func TestValidateTokenValid(t *testing.T) {
	r, store := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/validate-token", dto.ValidateTokenRequest{TokenValue: testTokenValue})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ValidateTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsValid)
	assert.Equal(t, store.scope.ClientID, resp.ClientID)
	assert.Equal(t, store.scope.SiteID, resp.SiteID)
	assert.Empty(t, resp.ErrorMessage)
}

func TestValidateTokenUnknown(t *testing.T) {
	r, store := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/validate-token", dto.ValidateTokenRequest{TokenValue: "LANET-ACME-HQ-ZZZZZZZZ"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ValidateTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsValid)
	assert.Equal(t, "Invalid installation token", resp.ErrorMessage)

	// Pre-flight checks never count usage.
	for _, token := range store.tokensByID {
		assert.Zero(t, token.UsageCount)
	}
}

func TestValidateTokenMissingBody(t *testing.T) {
	r, _ := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/validate-token", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAgent(t *testing.T) {
	r, store := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/register", dto.RegisterAgentRequest{
		TokenValue: testTokenValue,
		Hardware:   testHardwareReport(),
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AssetID)
	assert.Equal(t, store.scope.ClientID, resp.ClientID)
	assert.Equal(t, store.scope.SiteID, resp.SiteID)
	assert.NotEmpty(t, resp.Credential)
	assert.False(t, resp.ExistingAsset)
	assert.Equal(t, 60, resp.Config.HeartbeatInterval)
	assert.Equal(t, "https://hub.example.com", resp.Config.ServerURL)

	assert.Len(t, store.assets, 1)
	assert.Equal(t, "WS-01 (Agent)", store.assets[resp.AssetID].Name)
}

func TestRegisterAgentUnknownToken(t *testing.T) {
	r, store := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/register", dto.RegisterAgentRequest{
		TokenValue: "LANET-ACME-HQ-ZZZZZZZZ",
		Hardware:   testHardwareReport(),
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.RegistrationFailureResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid installation token", resp.Error)
	assert.Empty(t, resp.CorrelationID)
	assert.Empty(t, store.assets)
}

func TestRegisterAgentSigningFailure(t *testing.T) {
	r, _ := setupAgentsRouter("") // no credential secret configured

	w := postJSON(r, "/api/v1/agents/register", dto.RegisterAgentRequest{
		TokenValue: testTokenValue,
		Hardware:   testHardwareReport(),
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.RegistrationFailureResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "agent registration failed", resp.Error)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestRegisterAgentMissingToken(t *testing.T) {
	r, _ := setupAgentsRouter("test-secret")

	w := postJSON(r, "/api/v1/agents/register", map[string]any{
		"hardware": testHardwareReport(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
