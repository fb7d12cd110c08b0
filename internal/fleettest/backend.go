// Package fleettest provides an in-process fake of the fleet backend for tests
package fleettest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Token is the access token the fake backend issues and accepts
const Token = "test-token"

// Call records a request received by the backend
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	RequestID     string
	Body          string
}

// Backend is a fake fleet backend.
// Every endpoint answers with the response configured for it; unconfigured endpoints answer
// with an empty success acknowledgement.
type Backend struct {
	Server *httptest.Server

	mtx         sync.Mutex
	calls       []Call
	responses   map[string]response
	delays      map[string]time.Duration
	requireAuth bool
}

type response struct {
	status int
	body   string
}

// New starts a new fake backend; it is closed when the test finishes
func New(t interface {
	Cleanup(func())
}) *Backend {
	backend := &Backend{
		responses: make(map[string]response),
		delays:    make(map[string]time.Duration),
	}
	backend.Respond(http.MethodPost, "/auth/login", http.StatusOK, `{"access_token":"`+Token+`","token_type":"bearer"}`)

	router := chi.NewRouter()
	router.HandleFunc("/*", backend.handle)
	backend.Server = httptest.NewServer(router)
	t.Cleanup(backend.Server.Close)
	return backend
}

// URL returns the base URL of the backend
func (backend *Backend) URL() string {
	return backend.Server.URL
}

// RequireAuth makes every endpoint except the login endpoint answer 401 unless the request
// carries the issued token
func (backend *Backend) RequireAuth() {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.requireAuth = true
}

// Respond configures the response of an endpoint
func (backend *Backend) Respond(method, path string, status int, body string) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.responses[method+" "+path] = response{status: status, body: body}
}

// Delay makes an endpoint wait before answering.
// The response is chosen when the request arrives.
func (backend *Backend) Delay(method, path string, delay time.Duration) {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	backend.delays[method+" "+path] = delay
}

// RespondJSON configures the response of an endpoint to the JSON encoding of value
func (backend *Backend) RespondJSON(method, path string, status int, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	backend.Respond(method, path, status, string(encoded))
}

// Calls returns a copy of all recorded calls
func (backend *Backend) Calls() []Call {
	backend.mtx.Lock()
	defer backend.mtx.Unlock()
	calls := make([]Call, len(backend.calls))
	copy(calls, backend.calls)
	return calls
}

// CallsTo returns the recorded calls of a single endpoint
func (backend *Backend) CallsTo(method, path string) []Call {
	var calls []Call
	for _, call := range backend.Calls() {
		if call.Method == method && call.Path == path {
			calls = append(calls, call)
		}
	}
	return calls
}

// LastCall returns the most recent call or an empty call
func (backend *Backend) LastCall() Call {
	calls := backend.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

func (backend *Backend) handle(writer http.ResponseWriter, request *http.Request) {
	body, _ := io.ReadAll(request.Body)
	call := Call{
		Method:        request.Method,
		Path:          request.URL.Path,
		Query:         request.URL.RawQuery,
		Authorization: request.Header.Get("Authorization"),
		ContentType:   request.Header.Get("Content-Type"),
		RequestID:     request.Header.Get("X-Request-ID"),
		Body:          string(body),
	}

	backend.mtx.Lock()
	backend.calls = append(backend.calls, call)
	resp, ok := backend.responses[call.Method+" "+call.Path]
	requireAuth := backend.requireAuth
	delay := backend.delays[call.Method+" "+call.Path]
	backend.mtx.Unlock()

	if requireAuth && !strings.HasPrefix(call.Path, "/auth/login") && call.Authorization != "Bearer "+Token {
		resp = response{status: http.StatusUnauthorized, body: `{"detail":"Could not validate credentials"}`}
		ok = true
	}
	if !ok {
		resp = response{status: http.StatusOK, body: `{"success":true}`}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-request.Context().Done():
			return
		}
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(resp.status)
	_, _ = io.WriteString(writer, resp.body)
}
