package systemtest

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/lanetsoft/agent-hub/internal/agents"
	api "github.com/lanetsoft/agent-hub/internal/api/http"
	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/auth"
	"github.com/lanetsoft/agent-hub/internal/credentials"
	"github.com/lanetsoft/agent-hub/internal/db"
	"github.com/lanetsoft/agent-hub/internal/directory"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/store"
	"github.com/lanetsoft/agent-hub/internal/tokens"
	"github.com/lanetsoft/agent-hub/systemtest/postgres"
	"github.com/lanetsoft/agent-hub/systemtest/tests"
)

const (
	jwtSecret        = "systemtest-session-secret"
	credentialSecret = "systemtest-agent-secret"
)

// seedScope inserts one client and one linked site and returns their IDs.
func seedScope(ctx context.Context, t *testing.T, pool *pgxpool.Pool) (clientID, siteID string) {
	t.Helper()

	clientID = uuid.NewString()
	siteID = uuid.NewString()

	_, err := pool.Exec(ctx,
		"INSERT INTO clients (id, code, name) VALUES ($1::uuid, $2, $3)",
		clientID, "ACME", "Acme Corp")
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		"INSERT INTO sites (id, client_id, code, name) VALUES ($1::uuid, $2::uuid, $3, $4)",
		siteID, clientID, "HQ", "Headquarters")
	require.NoError(t, err)

	return clientID, siteID
}

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping system test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.StartPostgres(ctx, "hub", "hub", "agent_hub")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgres.TerminatePostgres(ctx, container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(dbURL, ""))

	pool, err := db.InitDB(ctx, dbURL, "")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	clientID, siteID := seedScope(ctx, t, pool)

	st := store.New(pool)
	jwtConfig := auth.JWTConfig{Secret: jwtSecret, DurationMinutes: 60}
	tokenService := tokens.NewService(st, directory.NewService(st))
	resolver := assets.NewResolver(st)
	ledgerService := ledger.NewService(st)
	agentService := agents.NewService(
		tokenService,
		resolver,
		credentials.NewIssuer(credentialSecret),
		ledgerService,
		agents.RuntimeConfig{ServerURL: "http://localhost:8080"},
	)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api.SetupRoute(engine, &api.Services{
		Auth:      auth.NewService(st, jwtConfig),
		Tokens:    tokenService,
		Agents:    agentService,
		Assets:    resolver,
		Ledger:    ledgerService,
		DB:        pool,
		JWTSecret: jwtSecret,
	})

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, engine) })
	t.Run("Register", func(t *testing.T) { tests.TestRegister(t, engine) })
	t.Run("Login", func(t *testing.T) { tests.TestLogin(t, engine, jwtSecret) })
	t.Run("InstallationTokens", func(t *testing.T) { tests.TestInstallationTokens(t, engine, clientID, siteID) })
	t.Run("AgentRegistration", func(t *testing.T) { tests.TestAgentRegistration(t, engine, clientID, siteID) })
	t.Run("RetiredAssetReplacement", func(t *testing.T) { tests.TestRetiredAssetReplacement(t, engine, pool, clientID, siteID) })
}
