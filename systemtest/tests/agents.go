package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
	"github.com/lanetsoft/agent-hub/internal/fingerprint"
)

func workstationReport(name string) fingerprint.Report {
	return fingerprint.Report{
		ComputerName: name,
		MachineType:  "physical",
		OS:           "Windows 11 Pro",
		AgentVersion: "2.1.0",
		NetworkInterfaces: []fingerprint.NetworkInterface{
			{Name: "Ethernet", MACAddress: "AA:BB:CC:DD:EE:FF", IPAddress: "192.168.1.50"},
		},
		Hardware: fingerprint.Hardware{
			CPU:    &fingerprint.CPU{Cores: 8, Model: "Intel Core i7-12700"},
			Memory: &fingerprint.Memory{TotalBytes: 17179869184},
			Disks:  []fingerprint.Disk{{Name: "C:", TotalBytes: 512110190592}},
		},
	}
}

func TestAgentRegistration(t *testing.T, router *gin.Engine, clientID, siteID string) {
	session := loginAs(t, router, "rolloutadmin")

	rr := doJSONWithAuth(router, "POST", "/api/v1/installation-tokens",
		dto.CreateInstallationTokenRequest{ClientID: clientID, SiteID: siteID}, session)
	require.Equal(t, http.StatusCreated, rr.Code)

	var token dto.InstallationTokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))

	var first dto.RegisterAgentResponse

	t.Run("first registration creates an asset", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
			TokenValue: token.TokenValue,
			Hardware:   workstationReport("WS-01"),
		})
		require.Equal(t, http.StatusOK, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
		assert.NotEmpty(t, first.AssetID)
		assert.Equal(t, clientID, first.ClientID)
		assert.Equal(t, siteID, first.SiteID)
		assert.NotEmpty(t, first.Credential)
		assert.False(t, first.ExistingAsset)
		assert.Equal(t, 60, first.Config.HeartbeatInterval)
	})

	t.Run("re-registration is idempotent", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
			TokenValue: token.TokenValue,
			Hardware:   workstationReport("WS-01"),
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var second dto.RegisterAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
		assert.Equal(t, first.AssetID, second.AssetID)
		assert.True(t, second.ExistingAsset)
	})

	t.Run("hardware change falls back to name match", func(t *testing.T) {
		upgraded := workstationReport("WS-01")
		upgraded.Hardware.Memory = &fingerprint.Memory{TotalBytes: 34359738368}

		rr := doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
			TokenValue: token.TokenValue,
			Hardware:   upgraded,
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.RegisterAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, first.AssetID, resp.AssetID)
		assert.True(t, resp.ExistingAsset)
	})

	t.Run("usage count tracks successful registrations", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/api/v1/installation-tokens?client_id="+clientID, nil, session)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListInstallationTokensResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

		var found bool
		for _, item := range resp.Tokens {
			if item.ID == token.ID {
				found = true
				assert.Equal(t, 3, item.UsageCount)
				assert.NotNil(t, item.LastUsedAt)
			}
		}
		require.True(t, found)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
			TokenValue: "LANET-ACME-HQ-ZZZZZZZZ",
			Hardware:   workstationReport("WS-02"),
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var failure dto.RegistrationFailureResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &failure))
		assert.Equal(t, "Invalid installation token", failure.Error)
	})

	t.Run("usage history records every attempt", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/api/v1/installation-tokens/"+token.ID+"/usage", nil, session)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListUsageRecordsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Records, 3)
		for _, record := range resp.Records {
			assert.True(t, record.Success)
			assert.NotNil(t, record.AssetID)
			assert.NotEmpty(t, record.Snapshot)
		}
	})

	t.Run("assets list shows the registered device", func(t *testing.T) {
		rr := doJSONWithAuth(router, "GET", "/api/v1/assets?client_id="+clientID, nil, session)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAssetsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "WS-01 (Agent)", resp.Assets[0].Name)
		assert.Equal(t, "online", resp.Assets[0].AgentStatus)
		assert.NotEmpty(t, resp.Assets[0].Fingerprint)
	})
}

// TestRetiredAssetReplacement registers a device, retires its asset row
// directly in the database, then registers the same hardware again. The
// second registration must produce a fresh active asset rather than
// reviving the retired one.
func TestRetiredAssetReplacement(t *testing.T, router *gin.Engine, pool *pgxpool.Pool, clientID, siteID string) {
	ctx := context.Background()
	session := loginAs(t, router, "rolloutadmin")

	rr := doJSONWithAuth(router, "POST", "/api/v1/installation-tokens",
		dto.CreateInstallationTokenRequest{ClientID: clientID, SiteID: siteID}, session)
	require.Equal(t, http.StatusCreated, rr.Code)

	var token dto.InstallationTokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))

	report := workstationReport("WS-05")
	report.NetworkInterfaces[0].MACAddress = "AA:BB:CC:DD:EE:05"

	rr = doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
		TokenValue: token.TokenValue,
		Hardware:   report,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var first dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

	tag, err := pool.Exec(ctx, "UPDATE assets SET status = 'retired', agent_status = 'offline' WHERE id = $1::uuid", first.AssetID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())

	rr = doJSON(router, "POST", "/api/v1/agents/register", dto.RegisterAgentRequest{
		TokenValue: token.TokenValue,
		Hardware:   report,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var second dto.RegisterAgentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.NotEqual(t, first.AssetID, second.AssetID)
	assert.False(t, second.ExistingAsset)

	var status string
	require.NoError(t, pool.QueryRow(ctx, "SELECT status FROM assets WHERE id = $1::uuid", first.AssetID).Scan(&status))
	assert.Equal(t, "retired", status)
}
