package tests

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
)

// loginAs registers a fresh operator and returns a session token.
func loginAs(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()

	rr := doJSON(router, "POST", "/api/v1/auth/register", dto.RegisterRequest{
		Username: username,
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(router, "POST", "/api/v1/auth/login", dto.LoginRequest{
		Username: username,
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func TestInstallationTokens(t *testing.T, router *gin.Engine, clientID, siteID string) {
	session := loginAs(t, router, "tokenadmin")

	var created dto.InstallationTokenResponse

	t.Run("create", func(t *testing.T) {
		body := dto.CreateInstallationTokenRequest{
			ClientID: clientID,
			SiteID:   siteID,
			Notes:    "rollout wave 1",
		}
		rr := doJSONWithAuth(router, "POST", "/api/v1/installation-tokens", body, session)

		assert.Equal(t, http.StatusCreated, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
		assert.Regexp(t, regexp.MustCompile(`^LANET-ACME-HQ-[A-Z0-9]{8}$`), created.TokenValue)
		assert.Equal(t, "Acme Corp", created.ClientName)
		assert.Equal(t, "Headquarters", created.SiteName)
		assert.Equal(t, "tokenadmin", created.CreatedBy)
		assert.True(t, created.IsActive)
		assert.Nil(t, created.ExpiresAt)
		assert.Zero(t, created.UsageCount)
	})

	t.Run("create with expiry", func(t *testing.T) {
		body := dto.CreateInstallationTokenRequest{
			ClientID:    clientID,
			SiteID:      siteID,
			ExpiresDays: 7,
		}
		rr := doJSONWithAuth(router, "POST", "/api/v1/installation-tokens", body, session)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.InstallationTokenResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.ExpiresAt)
	})

	t.Run("create with unknown scope", func(t *testing.T) {
		body := dto.CreateInstallationTokenRequest{
			ClientID: uuid.NewString(),
			SiteID:   siteID,
		}
		rr := doJSONWithAuth(router, "POST", "/api/v1/installation-tokens", body, session)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("create requires session", func(t *testing.T) {
		body := dto.CreateInstallationTokenRequest{ClientID: clientID, SiteID: siteID}
		rr := doJSON(router, "POST", "/api/v1/installation-tokens", body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("list filtered by scope", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/api/v1/installation-tokens?client_id="+clientID, nil, session)
		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListInstallationTokensResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.GreaterOrEqual(t, len(resp.Tokens), 2)
	})

	t.Run("disable and re-enable", func(t *testing.T) {
		disabled := false
		rr := doJSONWithAuth(router, "PATCH", "/api/v1/installation-tokens/"+created.ID+"/status",
			dto.UpdateTokenStatusRequest{IsActive: &disabled}, session)
		require.Equal(t, http.StatusOK, rr.Code)

		// A disabled token fails validation with the stable message.
		vr := doJSON(router, "POST", "/api/v1/agents/validate-token",
			dto.ValidateTokenRequest{TokenValue: created.TokenValue})
		require.Equal(t, http.StatusOK, vr.Code)

		var validation dto.ValidateTokenResponse
		require.NoError(t, json.Unmarshal(vr.Body.Bytes(), &validation))
		assert.False(t, validation.IsValid)
		assert.Equal(t, "Installation token is inactive", validation.ErrorMessage)

		enabled := true
		rr = doJSONWithAuth(router, "PATCH", "/api/v1/installation-tokens/"+created.ID+"/status",
			dto.UpdateTokenStatusRequest{IsActive: &enabled}, session)
		require.Equal(t, http.StatusOK, rr.Code)

		vr = doJSON(router, "POST", "/api/v1/agents/validate-token",
			dto.ValidateTokenRequest{TokenValue: created.TokenValue})
		require.Equal(t, http.StatusOK, vr.Code)
		require.NoError(t, json.Unmarshal(vr.Body.Bytes(), &validation))
		assert.True(t, validation.IsValid)
		assert.Equal(t, clientID, validation.ClientID)
		assert.Equal(t, siteID, validation.SiteID)
	})

	t.Run("status of unknown token", func(t *testing.T) {
		disabled := false
		rr := doJSONWithAuth(router, "PATCH", "/api/v1/installation-tokens/"+uuid.NewString()+"/status",
			dto.UpdateTokenStatusRequest{IsActive: &disabled}, session)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
