package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/fleettest"
	"github.com/skybi/fleetdash/internal/metrics"
	"github.com/skybi/fleetdash/internal/session"
	"github.com/skybi/fleetdash/internal/session/storage/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T) (*Client, *fleettest.Backend, session.Storage) {
	backend := fleettest.New(t)
	storage, err := inmem.New()
	require.NoError(t, err)
	ses := session.New(storage, session.DefaultKey)
	return New(ses, Options{BaseURL: backend.URL(), Timeout: 5 * time.Second, Metrics: metrics.New()}), backend, storage
}

func beginSession(t *testing.T, client *Client, accessToken string) {
	require.NoError(t, client.Session().Begin(context.Background(), &oauth2.Token{AccessToken: accessToken}))
}

func TestRequestAuthorizationHeader(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetSystemStatus(ctx)
	require.NoError(t, err)
	call := backend.LastCall()
	assert.Empty(t, call.Authorization)
	assert.Equal(t, "application/json", call.ContentType)
	assert.NotEmpty(t, call.RequestID)

	beginSession(t, client, "abc")
	_, err = client.GetSystemStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", backend.LastCall().Authorization)
}

func TestRequestUnauthorizedClearsSession(t *testing.T) {
	endpoints := []struct {
		name   string
		method string
		path   string
		call   func(ctx context.Context, client *Client) error
	}{
		{"status", http.MethodGet, "/api/status", func(ctx context.Context, client *Client) error {
			_, err := client.GetSystemStatus(ctx)
			return err
		}},
		{"emulators", http.MethodGet, "/api/emulators", func(ctx context.Context, client *Client) error {
			_, err := client.GetEmulators(ctx)
			return err
		}},
		{"stop emulator", http.MethodPost, "/api/emulators/stop", func(ctx context.Context, client *Client) error {
			_, err := client.StopEmulator(ctx, fleet.NumericID(1), "e1")
			return err
		}},
		{"remove workstation", http.MethodDelete, "/api/workstations/3", func(ctx context.Context, client *Client) error {
			_, err := client.RemoveWorkstation(ctx, fleet.NumericID(3))
			return err
		}},
		{"cancel operation", http.MethodPost, "/api/operations/op-1/cancel", func(ctx context.Context, client *Client) error {
			_, err := client.CancelOperation(ctx, fleet.StringID("op-1"))
			return err
		}},
	}

	for _, tt := range endpoints {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, storage := newTestClient(t)
			ctx := context.Background()
			beginSession(t, client, "stale")
			backend.Respond(tt.method, tt.path, http.StatusUnauthorized, `{"detail":"Token expired"}`)

			err := tt.call(ctx, client)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.True(t, IsUnauthenticated(err))
			assert.Equal(t, "Token expired", Message(err))
			assert.False(t, client.Session().Authenticated())

			stored, err := storage.Load(ctx, session.DefaultKey)
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	}
}

func TestRequestUnauthorizedWithoutBody(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.Respond(http.MethodGet, "/api/status", http.StatusUnauthorized, "")

	_, err := client.GetSystemStatus(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, "Authentication required", Message(err))
}

func TestRequestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"detail", http.StatusNotFound, `{"detail":"Workstation not found"}`, "Workstation not found"},
		{"message", http.StatusBadRequest, `{"success":false,"message":"Invalid emulator name"}`, "Invalid emulator name"},
		{"detail wins", http.StatusConflict, `{"detail":"a","message":"b"}`, "a"},
		{"validation detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`, "field required; value is not a valid integer"},
		{"errors list", http.StatusBadRequest, `{"errors":[{"message":"bad limit"}]}`, "bad limit"},
		{"empty object", http.StatusInternalServerError, `{}`, "API request failed"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "API request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, _ := newTestClient(t)
			beginSession(t, client, "abc")
			backend.Respond(http.MethodGet, "/api/workstations", tt.status, tt.body)

			_, err := client.GetWorkstations(context.Background(), nil)
			require.Error(t, err)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.False(t, IsUnauthenticated(err))
			assert.True(t, client.Session().Authenticated())
		})
	}
}

func TestRequestTransportFailure(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.Server.Close()

	_, err := client.GetHealth(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestRequestEmptyBody(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.Respond(http.MethodPost, "/api/emulators/start", http.StatusNoContent, "")

	result, err := client.StartEmulator(context.Background(), fleet.NumericID(1), "e1")
	require.NoError(t, err)
	assert.Nil(t, result.Success)
}

func TestLogin(t *testing.T) {
	client, backend, storage := newTestClient(t)
	ctx := context.Background()
	backend.Respond(http.MethodPost, "/auth/login", http.StatusOK, `{"access_token":"fresh","refresh_token":"again","token_type":"bearer","expires_in":3600}`)

	resp, err := client.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.AccessToken)
	assert.Equal(t, "fresh", client.Session().AccessToken())
	assert.Equal(t, "again", client.Session().RefreshToken())
	assert.False(t, client.Session().Expired())
	assert.JSONEq(t, `{"username":"admin","password":"secret"}`, backend.LastCall().Body)

	stored, err := storage.Load(ctx, session.DefaultKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "fresh", stored.AccessToken)

	_, err = client.GetEmulators(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", backend.LastCall().Authorization)
}

func TestLoginFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server message", http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`, "Incorrect username or password"},
		{"no message", http.StatusUnauthorized, ``, "Login failed"},
		{"server error", http.StatusInternalServerError, `{}`, "Login failed"},
		{"no token", http.StatusOK, `{"token_type":"bearer"}`, "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, _ := newTestClient(t)
			backend.Respond(http.MethodPost, "/auth/login", tt.status, tt.body)

			_, err := client.Login(context.Background(), "admin", "wrong")
			require.Error(t, err)
			assert.Equal(t, tt.message, Message(err))
			assert.False(t, client.Session().Authenticated())
		})
	}
}

func TestLogoutDropsAuthorization(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	require.NoError(t, client.Logout(ctx))

	_, err = client.GetOperations(ctx, nil)
	require.NoError(t, err)
	_, err = client.GetHealth(ctx)
	require.NoError(t, err)

	for _, call := range backend.Calls()[1:] {
		assert.Empty(t, call.Authorization, call.Path)
	}
	assert.Len(t, backend.CallsTo(http.MethodPost, "/auth/logout"), 0)
}

func TestRefresh(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.Session().Begin(ctx, &oauth2.Token{AccessToken: "old", RefreshToken: "r1"}))
	backend.Respond(http.MethodPost, "/auth/refresh", http.StatusOK, `{"access_token":"new"}`)

	_, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", client.Session().AccessToken())
	assert.Equal(t, "r1", client.Session().RefreshToken())
	assert.JSONEq(t, `{"refresh_token":"r1"}`, backend.LastCall().Body)

	require.NoError(t, client.Logout(ctx))
	_, err = client.Refresh(ctx)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestAutoRefresh(t *testing.T) {
	backend := fleettest.New(t)
	ses := session.New(nil, "")
	client := New(ses, Options{BaseURL: backend.URL(), AutoRefresh: true})
	ctx := context.Background()
	require.NoError(t, ses.Begin(ctx, &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Minute),
	}))
	backend.Respond(http.MethodPost, "/auth/refresh", http.StatusOK, `{"access_token":"new","expires_in":60}`)

	_, err := client.GetEmulators(ctx)
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/auth/refresh", calls[0].Path)
	assert.Equal(t, "Bearer new", calls[1].Authorization)
}

func TestCurrentUser(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.Respond(http.MethodGet, "/auth/me", http.StatusOK, `{"username":"admin","role":"admin","disabled":false}`)

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "admin", user.Role)
}

func TestEmulatorActions(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.StopEmulator(ctx, fleet.NumericID(9), "e1")
	require.NoError(t, err)
	call := backend.LastCall()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/emulators/stop", call.Path)
	assert.JSONEq(t, `{"workstation_id":9,"name":"e1"}`, call.Body)

	_, err = client.StartEmulator(ctx, fleet.StringID("ws-a"), "e2")
	require.NoError(t, err)
	call = backend.LastCall()
	assert.Equal(t, "/api/emulators/start", call.Path)
	assert.JSONEq(t, `{"workstation_id":"ws-a","name":"e2"}`, call.Body)

	_, err = client.DeleteEmulator(ctx, fleet.NumericID(9), "e1")
	require.NoError(t, err)
	call = backend.LastCall()
	assert.Equal(t, http.MethodDelete, call.Method)
	assert.Equal(t, "/api/emulators", call.Path)
	assert.JSONEq(t, `{"workstation_id":9,"name":"e1"}`, call.Body)

	_, err = client.CreateEmulator(ctx, fleet.NumericID(9), "e3", nil)
	require.NoError(t, err)
	call = backend.LastCall()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.JSONEq(t, `{"workstation_id":9,"name":"e3","config":{}}`, call.Body)
}

func TestGetEmulators(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.Respond(http.MethodGet, "/api/emulators", http.StatusOK, `[{"id":1,"name":"e1","workstation_id":9,"status":"running"}]`)

	emulators, err := client.GetEmulators(context.Background())
	require.NoError(t, err)
	require.Len(t, emulators, 1)
	assert.Equal(t, "e1", emulators[0].Name)
	assert.Equal(t, fleet.NumericID(9), emulators[0].WorkstationID)
	assert.True(t, emulators[0].IsRunning())
}

func TestWorkstationRequests(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()
	backend.Respond(http.MethodGet, "/api/workstations", http.StatusOK, `{"data":[{"id":3,"name":"ws-3","emulator_count":2}],"pagination":{"total":1}}`)
	backend.Respond(http.MethodPost, "/api/workstations", http.StatusOK, `{"id":4,"name":"ws-4"}`)

	workstations, err := client.GetWorkstations(ctx, &ListOptions{Skip: 10, Limit: 5})
	require.NoError(t, err)
	require.Len(t, workstations, 1)
	assert.Equal(t, 2, workstations[0].NumEmulators())
	assert.Equal(t, "limit=5&skip=10", backend.LastCall().Query)

	_, err = client.GetWorkstations(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, backend.LastCall().Query)

	created, err := client.AddWorkstation(ctx, &fleet.WorkstationCreate{Name: "ws-4", IPAddress: "10.0.0.4", Port: 22})
	require.NoError(t, err)
	assert.Equal(t, "ws-4", created.Name)
	assert.Contains(t, backend.LastCall().Body, `"ip_address":"10.0.0.4"`)

	_, err = client.RemoveWorkstation(ctx, fleet.NumericID(4))
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, backend.LastCall().Method)
	assert.Equal(t, "/api/workstations/4", backend.LastCall().Path)

	_, err = client.TestConnection(ctx, fleet.NumericID(4))
	require.NoError(t, err)
	assert.Equal(t, "/api/workstations/4/test-connection", backend.LastCall().Path)
}

func TestOperationRequests(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()
	backend.Respond(http.MethodGet, "/api/operations", http.StatusOK, `{"items":[{"id":"a1","type":"start_emulator","status":"running","created_at":"2024-05-01T10:00:00.123456"}]}`)
	backend.Respond(http.MethodGet, "/api/operations/a1", http.StatusOK, `{"id":"a1","operation_type":"start_emulator","status":"SUCCESS"}`)

	operations, err := client.GetOperations(ctx, &ListOptions{Limit: 50})
	require.NoError(t, err)
	require.Len(t, operations, 1)
	assert.Equal(t, "start_emulator", operations[0].Kind())
	assert.True(t, operations[0].IsActive())
	assert.Equal(t, "limit=50", backend.LastCall().Query)

	operation, err := client.GetOperation(ctx, fleet.StringID("a1"))
	require.NoError(t, err)
	assert.Equal(t, fleet.OperationSuccess, operation.NormalizedStatus())

	_, err = client.CancelOperation(ctx, fleet.StringID("a1"))
	require.NoError(t, err)
	assert.Equal(t, "/api/operations/a1/cancel", backend.LastCall().Path)
}

func TestSystemRequests(t *testing.T) {
	client, backend, _ := newTestClient(t)
	ctx := context.Background()
	backend.Respond(http.MethodGet, "/api/status", http.StatusOK, `{"status":"ok","version":"1.0.0","connected_workstations":2,"total_emulators":5,"active_operations":1}`)
	backend.Respond(http.MethodGet, "/api/health", http.StatusOK, `{"success":true,"message":"ok","data":{"status":"healthy"}}`)

	status, err := client.GetSystemStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, &fleet.SystemStatus{Status: "ok", Version: "1.0.0", ConnectedWorkstations: 2, TotalEmulators: 5, ActiveOperations: 1}, status)

	health, err := client.GetHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.DisplayStatus())
}

func TestConcurrentRequests(t *testing.T) {
	client, backend, _ := newTestClient(t)
	beginSession(t, client, "abc")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetEmulators(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, backend.Calls(), 20)
}

func TestRateLimit(t *testing.T) {
	backend := fleettest.New(t)
	client := New(session.New(nil, ""), Options{BaseURL: backend.URL(), RequestsPerSecond: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := client.GetHealth(ctx)
	require.NoError(t, err)
	_, err = client.GetHealth(ctx)
	require.Error(t, err)
	assert.Len(t, backend.Calls(), 1)
}
