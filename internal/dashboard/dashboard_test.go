package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/fleet"
	"github.com/skybi/fleetdash/internal/fleettest"
	"github.com/skybi/fleetdash/internal/poll"
	"github.com/skybi/fleetdash/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fixture struct {
	backend    *fleettest.Backend
	api        *client.Client
	controller *Controller
	logins     *atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	backend := fleettest.New(t)
	api := client.New(session.New(nil, ""), client.Options{BaseURL: backend.URL()})
	require.NoError(t, api.Session().Begin(context.Background(), &oauth2.Token{AccessToken: fleettest.Token}))

	manager := poll.NewManager(time.Minute, nil)
	t.Cleanup(manager.Close)

	logins := new(atomic.Int32)
	controller := NewController(api, NewResources(manager, api, DefaultIntervals()), func() {
		logins.Add(1)
	})
	return &fixture{backend: backend, api: api, controller: controller, logins: logins}
}

func TestSummaryDisplaysStatusUnmodified(t *testing.T) {
	fix := newFixture(t)
	fix.backend.Respond(http.MethodGet, "/api/status", http.StatusOK, `{"status":"ok","version":"1.0.0","connected_workstations":2,"total_emulators":5,"active_operations":1}`)

	summary, err := fix.controller.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", summary.Status)
	assert.Equal(t, "1.0.0", summary.Version)
	assert.Equal(t, 2, summary.ConnectedWorkstations)
	assert.Equal(t, 5, summary.TotalEmulators)
	assert.Equal(t, 1, summary.ActiveOperations)
	assert.Equal(t, "N/A", summary.Uptime)

	var out bytes.Buffer
	require.NoError(t, RenderSummary(&out, summary))
	assert.Contains(t, out.String(), "ok")
	assert.Contains(t, out.String(), "1.0.0")
	assert.Regexp(t, `Connected workstations:\s+2\n`, out.String())
	assert.Regexp(t, `Total emulators:\s+5\n`, out.String())
	assert.Regexp(t, `Active operations:\s+1\n`, out.String())
}

func TestStopEmulatorRefreshesList(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()
	fix.backend.Respond(http.MethodGet, "/api/emulators", http.StatusOK, `[{"id":1,"name":"e1","workstation_id":9,"status":"running"}]`)

	rows, err := fix.controller.Emulators(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9-e1", rows[0].Key)
	assert.True(t, rows[0].Running)

	var emulators []fleet.Emulator
	emulators, err = fix.controller.Resources().Emulators.Get(ctx)
	require.NoError(t, err)

	fix.backend.Respond(http.MethodGet, "/api/emulators", http.StatusOK, `[{"id":1,"name":"e1","workstation_id":9,"status":"stopped"}]`)
	require.NoError(t, fix.controller.StopEmulator(ctx, emulators[0].WorkstationID, emulators[0].Name))

	calls := fix.backend.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	stop := calls[len(calls)-2]
	assert.Equal(t, http.MethodPost, stop.Method)
	assert.Equal(t, "/api/emulators/stop", stop.Path)
	assert.JSONEq(t, `{"workstation_id":9,"name":"e1"}`, stop.Body)
	refresh := calls[len(calls)-1]
	assert.Equal(t, http.MethodGet, refresh.Method)
	assert.Equal(t, "/api/emulators", refresh.Path)

	rows, err = fix.controller.Emulators(ctx)
	require.NoError(t, err)
	assert.False(t, rows[0].Running)
	assert.Empty(t, rows[0].Action)
}

func TestFailedActionDoesNotRefresh(t *testing.T) {
	fix := newFixture(t)
	fix.backend.Respond(http.MethodPost, "/api/emulators/start", http.StatusBadRequest, `{"detail":"Emulator is already running"}`)

	err := fix.controller.StartEmulator(context.Background(), fleet.NumericID(9), "e1")
	require.Error(t, err)
	assert.Equal(t, "Emulator is already running", client.Message(err))
	assert.Empty(t, fix.backend.CallsTo(http.MethodGet, "/api/emulators"))
	assert.EqualValues(t, 0, fix.logins.Load())
}

func TestUnauthenticatedNavigatesToLogin(t *testing.T) {
	fix := newFixture(t)
	fix.backend.Respond(http.MethodGet, "/api/workstations", http.StatusUnauthorized, `{"detail":"Not authenticated"}`)

	_, err := fix.controller.Workstations(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.EqualValues(t, 1, fix.logins.Load())
	assert.False(t, fix.controller.Authenticated())
}

func TestUnauthenticatedActionNavigatesToLogin(t *testing.T) {
	fix := newFixture(t)
	fix.backend.RequireAuth()
	require.NoError(t, fix.api.Session().Begin(context.Background(), &oauth2.Token{AccessToken: "revoked"}))

	err := fix.controller.DeleteEmulator(context.Background(), fleet.NumericID(9), "e1")
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.EqualValues(t, 1, fix.logins.Load())
}

func TestWorkstationAndOperationActionsRefresh(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	_, err := fix.controller.AddWorkstation(ctx, &fleet.WorkstationCreate{Name: "ws-1", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "/api/workstations", fix.backend.LastCall().Path)
	assert.Equal(t, "limit=100", fix.backend.LastCall().Query)

	require.NoError(t, fix.controller.RemoveWorkstation(ctx, fleet.NumericID(1)))
	assert.Equal(t, http.MethodGet, fix.backend.LastCall().Method)

	_, err = fix.controller.TestConnection(ctx, fleet.NumericID(1))
	require.NoError(t, err)
	assert.Equal(t, "/api/workstations", fix.backend.LastCall().Path)

	require.NoError(t, fix.controller.CancelOperation(ctx, fleet.StringID("op-1")))
	calls := fix.backend.Calls()
	assert.Equal(t, "/api/operations/op-1/cancel", calls[len(calls)-2].Path)
	assert.Equal(t, "/api/operations", calls[len(calls)-1].Path)
	assert.Equal(t, "limit=50", calls[len(calls)-1].Query)
}

func TestLogoutNavigatesToLogin(t *testing.T) {
	fix := newFixture(t)
	require.NoError(t, fix.controller.Logout(context.Background()))
	assert.False(t, fix.controller.Authenticated())
	assert.EqualValues(t, 1, fix.logins.Load())
}

func TestPendingActionIsTracked(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	release := make(chan struct{})
	observed := make(chan string, 1)
	api := fix.api
	manager := poll.NewManager(time.Minute, nil)
	t.Cleanup(manager.Close)
	resources := &Resources{
		Emulators: poll.Register(manager, ResourceEmulators, time.Hour, func(ctx context.Context) ([]fleet.Emulator, error) {
			return api.GetEmulators(ctx)
		}),
	}
	controller := NewController(api, resources, nil)

	go func() {
		defer close(release)
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if action := controller.PendingAction("9-e1"); action != "" {
				observed <- action
				return
			}
			time.Sleep(time.Millisecond)
		}
		observed <- ""
	}()
	fix.backend.Respond(http.MethodPost, "/api/emulators/start", http.StatusOK, `{"success":true}`)

	resources.Emulators.Subscribe(func(poll.Snapshot[[]fleet.Emulator]) {
		<-release
	})
	require.NoError(t, controller.StartEmulator(ctx, fleet.NumericID(9), "e1"))
	assert.Equal(t, ActionStarting, <-observed)
	assert.Empty(t, controller.PendingAction("9-e1"))
}

func TestRows(t *testing.T) {
	disk := 42.6
	count := 3
	workstations := NewWorkstationRows([]fleet.Workstation{
		{ID: fleet.NumericID(1), Name: "ws-1", IPAddress: "10.0.0.1", Status: "ONLINE", DiskUsage: &disk, EmulatorCount: &count},
		{ID: fleet.StringID("ws-2"), Hostname: "host-2"},
	})
	assert.Equal(t, "43%", workstations[0].DiskUsage)
	assert.True(t, workstations[0].Online)
	assert.Equal(t, 3, workstations[0].Emulators)
	assert.Equal(t, "host-2", workstations[1].Name)
	assert.Equal(t, "N/A", workstations[1].DiskUsage)
	assert.Equal(t, "unknown", workstations[1].Status)

	emulators := NewEmulatorRows([]fleet.Emulator{{Name: "e1"}}, nil)
	assert.Equal(t, "unknown-e1", emulators[0].Key)
	assert.Equal(t, "Unknown", emulators[0].Workstation)
	assert.Equal(t, "unknown", emulators[0].Status)
	assert.Equal(t, "N/A", emulators[0].ID)

	operations := NewOperationRows([]fleet.Operation{
		{ID: fleet.StringID("a"), Type: "stop_emulator", EmulatorName: "e1", Status: "completed", Progress: 100},
	})
	assert.Equal(t, "stop_emulator", operations[0].Type)
	assert.Equal(t, "e1", operations[0].Target)
	assert.Equal(t, fleet.OperationSuccess, operations[0].Status)
	assert.Equal(t, "N/A", operations[0].Time)

	var out bytes.Buffer
	require.NoError(t, RenderOperations(&out, operations))
	assert.Contains(t, out.String(), "100%")
	out.Reset()
	require.NoError(t, RenderEmulators(&out, nil))
	assert.Equal(t, "No emulators found\n", out.String())
}

func TestStopEmulatorRefreshesAfterRunningPoll(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()
	fix.backend.Respond(http.MethodGet, "/api/emulators", http.StatusOK, `[{"id":1,"name":"e1","workstation_id":9,"status":"running"}]`)
	fix.backend.Delay(http.MethodGet, "/api/emulators", 300*time.Millisecond)

	unsubscribe := fix.controller.Resources().Emulators.Subscribe(func(poll.Snapshot[[]fleet.Emulator]) {})
	defer unsubscribe()
	require.Eventually(t, func() bool {
		return len(fix.backend.CallsTo(http.MethodGet, "/api/emulators")) == 1
	}, time.Second, 5*time.Millisecond)

	fix.backend.Respond(http.MethodGet, "/api/emulators", http.StatusOK, `[{"id":1,"name":"e1","workstation_id":9,"status":"stopped"}]`)
	require.NoError(t, fix.controller.StopEmulator(ctx, fleet.NumericID(9), "e1"))

	calls := fix.backend.Calls()
	stopAt := -1
	var listsAfterStop int
	for i, call := range calls {
		switch {
		case call.Method == http.MethodPost && call.Path == "/api/emulators/stop":
			stopAt = i
		case stopAt >= 0 && call.Method == http.MethodGet && call.Path == "/api/emulators":
			listsAfterStop++
		}
	}
	require.GreaterOrEqual(t, stopAt, 0)
	assert.Equal(t, 1, listsAfterStop)

	rows, err := fix.controller.Emulators(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "stopped", rows[0].Status)
}
