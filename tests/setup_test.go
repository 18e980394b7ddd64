//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/config"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/handlers"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "pk_test_integration"
	testSessionSecret = "integration-session-secret"
	testCronSecret    = "integration-cron-secret"
	testServiceSecret = "integration-service-secret"
)

// TestServer wraps the HTTP test server and database for integration tests.
type TestServer struct {
	Server     *httptest.Server
	Database   *db.DB
	MerchantID uuid.UUID
	t          *testing.T
	stop       func()
}

// SetupTest creates a test server with a clean database state. Skips the
// test when no database is reachable.
func SetupTest(t *testing.T) *TestServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "failed to load config")

	if cfg.Vault.MasterKeyHex == "" {
		cfg.Vault.MasterKeyHex = hex.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
	}
	cfg.Vault.SessionSecret = testSessionSecret
	cfg.Vault.CronSecret = testCronSecret
	cfg.Vault.ServiceSecret = testServiceSecret

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	database, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		t.Skipf("database unavailable, skipping integration test: %v", err)
	}

	merchantID := resetTestData(t, database)

	router, pool, err := handlers.NewRouter(database, cfg, logger)
	require.NoError(t, err, "failed to build router")
	pool.Start(context.Background())

	server := httptest.NewServer(router)

	return &TestServer{
		Server:     server,
		Database:   database,
		MerchantID: merchantID,
		t:          t,
		stop:       pool.Stop,
	}
}

// Close shuts down the test server, the dispatch pool and the database
// connection.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.stop()
	_ = ts.Database.Close()
}

// URL returns the full URL for a given path.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

func resetTestData(t *testing.T, database *db.DB) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	_, err := database.ExecContext(ctx, `
		TRUNCATE TABLE webhook_deliveries, webhooks, risk_events, transactions,
			tokens, cards, rate_limits, audit_logs, compliance_logs,
			encryption_keys, merchants CASCADE;
	`)
	require.NoError(t, err, "failed to reset test data")

	merchantID := uuid.New()
	_, err = database.ExecContext(ctx, `
		INSERT INTO merchants (id, name, api_key, status)
		VALUES ($1, 'Integration Test Merchant', $2, 'active')
	`, merchantID, testAPIKey)
	require.NoError(t, err, "failed to seed merchant")

	return merchantID
}

// AdminBearer mints an admin session token signed with the test secret.
func AdminBearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(
		auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin},
		[]byte(testSessionSecret), time.Hour,
	)
	require.NoError(t, err)
	return "Bearer " + token
}

// Post sends a JSON POST with the given headers.
func (ts *TestServer) Post(t *testing.T, path string, body map[string]any, headers map[string]string) *http.Response {
	t.Helper()

	jsonBody, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, ts.URL(path), bytes.NewReader(jsonBody))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// MerchantPost sends a JSON POST authenticated with the seeded merchant key.
func (ts *TestServer) MerchantPost(t *testing.T, path string, body map[string]any) *http.Response {
	return ts.Post(t, path, body, map[string]string{"x-api-key": testAPIKey})
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
