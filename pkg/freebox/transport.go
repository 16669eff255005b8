package freebox

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// AuthHeader carries the session credential on authenticated calls.
const AuthHeader = "X-Fbx-App-Auth"

const maxBodySize = 4 << 20

var errMalformedEnvelope = errors.New("malformed response envelope: missing success flag")

// rawEnvelope distinguishes an absent success flag from false.
type rawEnvelope struct {
	Success   *bool           `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   string          `json:"msg,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// NewHTTPClient builds the client used to talk to the router. The router
// serves a certificate chained to its own CA; when caCertPath is empty,
// verification is skipped.
func NewHTTPClient(caCertPath string, timeout time.Duration) (*http.Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if caCertPath != "" {
		pem, err := os.ReadFile(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to append CA certificate from %s", caCertPath)
		}
		tlsConfig.RootCAs = pool
	} else {
		tlsConfig.InsecureSkipVerify = true
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// doEnveloped sends a JSON request and decodes the router envelope. A
// non-2xx status with a decodable envelope is not an error here: the
// envelope carries the router's own diagnosis.
func doEnveloped(ctx context.Context, hc *http.Client, method, url, session string, body any) (*envelope, int, error) {
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(AuthHeader, session)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		if res.StatusCode >= 300 {
			return nil, res.StatusCode, fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, res.StatusCode, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if raw.Success == nil {
		return nil, res.StatusCode, errMalformedEnvelope
	}

	return &envelope{
		Success:   *raw.Success,
		Result:    raw.Result,
		Message:   raw.Message,
		ErrorCode: raw.ErrorCode,
	}, res.StatusCode, nil
}

// decodeResult gates the result on the router's success flag before
// decoding it into T.
func decodeResult[T any](env *envelope, status int) (T, error) {
	var out T
	if !env.Success {
		return out, &RemoteError{StatusCode: status, ErrorCode: env.ErrorCode, Message: env.Message}
	}
	if len(env.Result) == 0 || bytes.Equal(bytes.TrimSpace(env.Result), []byte("null")) {
		return out, ErrEmptyResult
	}
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return out, fmt.Errorf("failed to decode result: %w", err)
	}
	return out, nil
}

// callEnveloped is doEnveloped followed by decodeResult.
func callEnveloped[T any](ctx context.Context, hc *http.Client, method, url, session string, body any) (T, error) {
	env, status, err := doEnveloped(ctx, hc, method, url, session, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResult[T](env, status)
}
