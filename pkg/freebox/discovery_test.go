package freebox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMajorVersion(t *testing.T) {
	tests := []struct {
		version string
		want    uint
		wantErr bool
	}{
		{"8.0", 8, false},
		{"8.0.1", 8, false},
		{"10.2", 10, false},
		{"8", 0, true},
		{"", 0, true},
		{".1", 0, true},
		{"v8.0", 0, true},
		{"-1.0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := MajorVersion(tt.version)
			if tt.wantErr {
				var invalid *InvalidVersionError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveBaseURL(t *testing.T) {
	desc := &EndpointDescriptor{APIDomain: "abcd.fbxos.fr", HTTPSPort: 12345, APIBasePath: "/api/", APIMajorVersion: 8}

	first := DeriveBaseURL(desc)
	assert.Equal(t, "https://abcd.fbxos.fr:12345/api/v8/", first)
	assert.Equal(t, first, DeriveBaseURL(desc))
}

func TestDiscover_Success(t *testing.T) {
	fr := newFakeRouter(t)

	desc, err := NewDiscoverer(fr.bootstrapURL(), fr.server.Client()).Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", desc.APIDomain)
	assert.Equal(t, "/api/", desc.APIBasePath)
	assert.Equal(t, uint(8), desc.APIMajorVersion)
	assert.Equal(t, "8.0", desc.APIVersion)
	assert.Equal(t, fr.baseURL(), DeriveBaseURL(desc))
}

func TestDiscover_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var de *DiscoveryError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			check: func(t *testing.T, err error) {
				var de *DiscoveryError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name: "version without delimiter",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"api_domain":"x.fbxos.fr","api_base_url":"/api/","https_port":443,"api_version":"8"}`))
			},
			check: func(t *testing.T, err error) {
				var iv *InvalidVersionError
				require.ErrorAs(t, err, &iv)
				assert.Equal(t, "8", iv.Version)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := NewDiscoverer(ts.URL, ts.Client()).Discover(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDiscover_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewDiscoverer(url, nil).Discover(context.Background())
	var de *DiscoveryError
	assert.ErrorAs(t, err, &de)
}

func TestCheckCompatibility(t *testing.T) {
	desc := &EndpointDescriptor{APIVersion: "8.0"}

	ok, err := CheckCompatibility(desc, ">= 4.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckCompatibility(desc, ">= 9.0")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckCompatibility(desc, "not a constraint")
	assert.Error(t, err)
}
