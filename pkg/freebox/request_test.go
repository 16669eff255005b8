package freebox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/freebox-agent/pkg/identity"
)

// staticClient builds a Client against an arbitrary test server whose
// login endpoints always succeed.
func staticClient(t *testing.T, resource http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/{$}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, loginResult{Challenge: testChallenge}, "", "")
	})
	mux.HandleFunc("POST /login/session", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, sessionResult{SessionToken: "s"}, "", "")
	})
	mux.HandleFunc("/res/", resource)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	id, err := identity.New("testapp", "", "", "")
	require.NoError(t, err)
	return &Client{
		baseURL:    ts.URL + "/",
		identity:   *id,
		appToken:   testAppToken,
		httpClient: ts.Client(),
		sessions:   NewSessionCache(0),
		logger:     zerolog.Nop(),
	}
}

func TestCall_DecodesResult(t *testing.T) {
	c := staticClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s", r.Header.Get(AuthHeader))
		_, _ = w.Write([]byte(`{"success":true,"result":{"enabled":true,"mac_filter_state":"disabled"}}`))
	})

	got, err := Call[WifiState](context.Background(), c, http.MethodGet, "res/", nil)
	require.NoError(t, err)
	assert.Equal(t, WifiState{Enabled: true, MacFilterState: "disabled"}, got)
}

func TestCall_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "malformed envelope",
			body: `{"result":{"enabled":true}}`,
			check: func(t *testing.T, err error) {
				var re *RequestError
				assert.ErrorAs(t, err, &re)
			},
		},
		{
			name: "not json",
			body: `garbage`,
			check: func(t *testing.T, err error) {
				var re *RequestError
				assert.ErrorAs(t, err, &re)
			},
		},
		{
			name: "success false",
			body: `{"success":false,"msg":"nope","error_code":"nodev"}`,
			check: func(t *testing.T, err error) {
				var re *RequestError
				require.ErrorAs(t, err, &re)
				var remote *RemoteError
				require.ErrorAs(t, err, &remote)
				assert.Equal(t, "nodev", remote.ErrorCode)
				assert.Equal(t, "nope", remote.Message)
			},
		},
		{
			name: "missing result",
			body: `{"success":true}`,
			check: func(t *testing.T, err error) {
				var re *RequestError
				require.ErrorAs(t, err, &re)
				assert.ErrorIs(t, err, ErrEmptyResult)
			},
		},
		{
			name: "shape mismatch",
			body: `{"success":true,"result":["a","b"]}`,
			check: func(t *testing.T, err error) {
				var re *RequestError
				assert.ErrorAs(t, err, &re)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := staticClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := Call[WifiState](context.Background(), c, http.MethodGet, "res/", nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCall_SessionFailureIsReturnedAsIs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, false, nil, "invalid_token", "unknown app")
	}))
	defer ts.Close()

	c := &Client{
		baseURL:    ts.URL + "/",
		identity:   identity.Identity{AppID: "testapp"},
		appToken:   testAppToken,
		httpClient: ts.Client(),
		sessions:   NewSessionCache(0),
		logger:     zerolog.Nop(),
	}

	_, err := Call[WifiState](context.Background(), c, http.MethodGet, "res/", nil)

	var se *SessionError
	require.ErrorAs(t, err, &se)
	var re *RequestError
	assert.False(t, errors.As(err, &re))
}

func TestCall_NegotiatesPerCallWithoutCache(t *testing.T) {
	fr := newFakeRouter(t, TrackStatusGranted)
	c := newTestClient(t, fr, persistedStore(testAppToken), 0)

	for i := 0; i < 3; i++ {
		_, err := c.GetWifiStatus(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, fr.sessionCalls.Load())
}

func TestCall_ReusesCachedSession(t *testing.T) {
	fr := newFakeRouter(t, TrackStatusGranted)
	c := newTestClient(t, fr, persistedStore(testAppToken), time.Minute)

	for i := 0; i < 3; i++ {
		_, err := c.GetWifiStatus(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, fr.sessionCalls.Load())
}

func TestCall_RenegotiatesOnceWhenCachedSessionRejected(t *testing.T) {
	fr := newFakeRouter(t, TrackStatusGranted)
	c := newTestClient(t, fr, persistedStore(testAppToken), time.Minute)

	_, err := c.GetWifiStatus(context.Background())
	require.NoError(t, err)

	fr.rejectSession("session-1")

	got, err := c.GetWifiStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.EqualValues(t, 2, fr.sessionCalls.Load())
	assert.EqualValues(t, 3, fr.wifiCalls.Load())

	token, ok := c.sessions.Get("testapp")
	require.True(t, ok)
	assert.Equal(t, "session-2", token)
}

func TestCall_FreshSessionRejectedIsNotRetried(t *testing.T) {
	fr := newFakeRouter(t, TrackStatusGranted)
	c := newTestClient(t, fr, persistedStore(testAppToken), time.Minute)
	fr.rejectSession("session-1")

	_, err := c.GetWifiStatus(context.Background())

	assert.True(t, IsAuthRejected(err))
	assert.EqualValues(t, 1, fr.sessionCalls.Load())
	_, ok := c.sessions.Get("testapp")
	assert.False(t, ok)
}
