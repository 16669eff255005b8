package freebox

import (
	"context"
	"errors"
)

// Call performs an authenticated request against path (relative to the
// base URL) and decodes the envelope result into T.
//
// Session failures are returned as *SessionError. Everything else is wrapped
// in a *RequestError; a success:false envelope surfaces as a *RemoteError
// inside it. A cached session rejected by the router is dropped, and the
// request is retried once on a fresh session.
func Call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var zero T
	url := c.baseURL + path

	session, cached, err := c.sessionToken(ctx)
	if err != nil {
		return zero, err
	}

	out, err := send[T](ctx, c, method, url, session, body)
	if err == nil {
		return out, nil
	}
	if !IsAuthRejected(err) {
		return zero, err
	}

	c.sessions.Invalidate(c.identity.AppID, session)
	if !cached {
		return zero, err
	}

	c.logger.Debug().Str("app_id", c.identity.AppID).Msg("Cached session rejected, renegotiating")
	session, err = c.newSession(ctx)
	if err != nil {
		return zero, err
	}
	out, err = send[T](ctx, c, method, url, session, body)
	if err != nil && IsAuthRejected(err) {
		c.sessions.Invalidate(c.identity.AppID, session)
	}
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, url, session string, body any) (T, error) {
	out, err := callEnveloped[T](ctx, c.httpClient, method, url, session, body)
	if err != nil {
		return out, &RequestError{Method: method, URL: url, Err: err}
	}
	return out, nil
}

// sessionToken returns a cached session when one is live, otherwise a fresh one.
func (c *Client) sessionToken(ctx context.Context) (token string, cached bool, err error) {
	if token, ok := c.sessions.Get(c.identity.AppID); ok {
		return token, true, nil
	}
	token, err = c.newSession(ctx)
	return token, false, err
}

func (c *Client) newSession(ctx context.Context) (string, error) {
	token, err := NegotiateSession(ctx, c.httpClient, c.baseURL, c.identity.AppID, c.appToken)
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) && remote.ErrorCode == "invalid_token" {
			c.logger.Error().Str("app_id", c.identity.AppID).Msg("Router rejected the app token, delete the state file to authorize again")
		}
		return "", err
	}
	c.sessions.Put(c.identity.AppID, token)
	return token, nil
}
