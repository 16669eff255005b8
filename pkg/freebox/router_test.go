package freebox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/freebox-agent/pkg/identity"
)

const (
	testAppID     = "testapp"
	testAppToken  = "app-token-secret"
	testChallenge = "challenge-123"
)

// fakeRouter emulates the parts of the router API the client talks to.
type fakeRouter struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	trackStatus  []string
	wifi         WifiState
	rejectTokens map[string]bool

	authorizeCalls atomic.Int32
	pollCalls      atomic.Int32
	sessionCalls   atomic.Int32
	wifiCalls      atomic.Int32
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, result any, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": success}
	if result != nil {
		body["result"] = result
	}
	if code != "" {
		body["error_code"] = code
	}
	if msg != "" {
		body["msg"] = msg
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newFakeRouter(t *testing.T, statuses ...string) *fakeRouter {
	t.Helper()
	fr := &fakeRouter{
		t:            t,
		trackStatus:  statuses,
		wifi:         WifiState{Enabled: true, MacFilterState: "disabled"},
		rejectTokens: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api_version", func(w http.ResponseWriter, r *http.Request) {
		u, _ := url.Parse(fr.server.URL)
		port, _ := strconv.Atoi(u.Port())
		_ = json.NewEncoder(w).Encode(APIVersion{
			UID:            "uid-1",
			DeviceName:     "Freebox Server",
			APIVersion:     "8.0",
			APIBaseURL:     "/api/",
			DeviceType:     "FreeboxServer1,2",
			APIDomain:      u.Hostname(),
			HTTPSAvailable: true,
			HTTPSPort:      uint16(port),
		})
	})
	mux.HandleFunc("POST /api/v8/login/authorize", func(w http.ResponseWriter, r *http.Request) {
		fr.authorizeCalls.Add(1)
		var req authorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppID == "" {
			writeEnvelope(w, http.StatusBadRequest, false, nil, "invalid_request", "bad body")
			return
		}
		writeEnvelope(w, http.StatusOK, true, authorizeResult{AppToken: testAppToken, TrackID: 42}, "", "")
	})
	mux.HandleFunc("GET /api/v8/login/authorize/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := int(fr.pollCalls.Add(1)) - 1
		if r.PathValue("id") != "42" {
			writeEnvelope(w, http.StatusNotFound, false, nil, "invalid_request", "no such track")
			return
		}
		fr.mu.Lock()
		status := TrackStatusPending
		if n < len(fr.trackStatus) {
			status = fr.trackStatus[n]
		} else if len(fr.trackStatus) > 0 {
			status = fr.trackStatus[len(fr.trackStatus)-1]
		}
		fr.mu.Unlock()
		writeEnvelope(w, http.StatusOK, true, authorizeTrack{Status: status, Challenge: testChallenge}, "", "")
	})
	mux.HandleFunc("GET /api/v8/login/{$}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, loginResult{LoggedIn: false, Challenge: testChallenge}, "", "")
	})
	mux.HandleFunc("POST /api/v8/login/session", func(w http.ResponseWriter, r *http.Request) {
		n := fr.sessionCalls.Add(1)
		var req sessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != Password(testAppToken, testChallenge) {
			writeEnvelope(w, http.StatusForbidden, false, nil, "invalid_token", "bad password")
			return
		}
		writeEnvelope(w, http.StatusOK, true, sessionResult{SessionToken: fmt.Sprintf("session-%d", n)}, "", "")
	})
	mux.HandleFunc("/api/v8/wifi/config/", func(w http.ResponseWriter, r *http.Request) {
		fr.wifiCalls.Add(1)
		token := r.Header.Get(AuthHeader)
		fr.mu.Lock()
		defer fr.mu.Unlock()
		if token == "" || fr.rejectTokens[token] {
			writeEnvelope(w, http.StatusForbidden, false, nil, "auth_required", "invalid session")
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, http.StatusOK, true, fr.wifi, "", "")
		case http.MethodPut:
			var update UpdateWifiState
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				writeEnvelope(w, http.StatusBadRequest, false, nil, "invalid_request", "bad body")
				return
			}
			fr.wifi.Enabled = update.Enabled
			writeEnvelope(w, http.StatusOK, true, fr.wifi, "", "")
		default:
			writeEnvelope(w, http.StatusMethodNotAllowed, false, nil, "invalid_request", "method")
		}
	})

	fr.server = httptest.NewTLSServer(mux)
	t.Cleanup(fr.server.Close)
	return fr
}

func (fr *fakeRouter) bootstrapURL() string { return fr.server.URL + "/api_version" }

func (fr *fakeRouter) baseURL() string { return fr.server.URL + "/api/v8/" }

func (fr *fakeRouter) rejectSession(token string) {
	fr.mu.Lock()
	fr.rejectTokens[token] = true
	fr.mu.Unlock()
}

// memoryStore is an in-memory TokenStore.
type memoryStore struct {
	mu      sync.Mutex
	appID   string
	token   string
	saved   int
	saveErr error
}

func (m *memoryStore) Token(appID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.appID != appID {
		return "", false
	}
	return m.token, true
}

// persistedStore holds token for the test identity.
func persistedStore(token string) *memoryStore {
	return &memoryStore{appID: testAppID, token: token}
}

func (m *memoryStore) Save(id *identity.Identity, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.appID = id.AppID
	m.token = token
	m.saved++
	return nil
}

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.New(testAppID, "", "", "")
	require.NoError(t, err)
	return id
}

func fastPoll() PollPolicy {
	return PollPolicy{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Timeout: 5 * time.Second}
}

func newTestClient(t *testing.T, fr *fakeRouter, store TokenStore, ttl time.Duration) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Options{
		Identity:     testIdentity(t),
		Store:        store,
		HTTPClient:   fr.server.Client(),
		BootstrapURL: fr.bootstrapURL(),
		SessionTTL:   ttl,
		Poll:         fastPoll(),
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}
