package freebox

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
)

// Password computes the session password: lower-case hex of
// HMAC-SHA1 keyed by the app token over the challenge.
func Password(appToken, challenge string) string {
	mac := hmac.New(sha1.New, []byte(appToken))
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

// NegotiateSession exchanges the app token for a short-lived session token
// through the router's challenge/response login.
func NegotiateSession(ctx context.Context, hc *http.Client, baseURL, appID, appToken string) (string, error) {
	login, err := callEnveloped[loginResult](ctx, hc, http.MethodGet, baseURL+"login/", "", nil)
	if err != nil {
		return "", &SessionError{Op: "challenge", Err: err}
	}
	if login.Challenge == "" {
		return "", &SessionError{Op: "challenge", Err: errors.New("router returned an empty challenge")}
	}

	req := sessionRequest{
		AppID:    appID,
		Password: Password(appToken, login.Challenge),
	}
	session, err := callEnveloped[sessionResult](ctx, hc, http.MethodPost, baseURL+"login/session", "", req)
	if err != nil {
		return "", &SessionError{Op: "open", Err: err}
	}
	if session.SessionToken == "" {
		return "", &SessionError{Op: "open", Err: errors.New("router returned an empty session token")}
	}
	return session.SessionToken, nil
}
