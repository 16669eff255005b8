package freebox

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/pkg/identity"
)

// PollPolicy bounds the wait for the user to approve the application.
type PollPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration
}

// DefaultPollPolicy is used for zero fields of a caller-supplied policy.
var DefaultPollPolicy = PollPolicy{
	BaseDelay: time.Second,
	MaxDelay:  10 * time.Second,
	Timeout:   5 * time.Minute,
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPollPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPollPolicy.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultPollPolicy.Timeout
	}
	return p
}

// delay returns the wait before poll number attempt (0-based): exponential
// growth capped at MaxDelay, then jittered into [d/2, d).
func (p PollPolicy) delay(attempt int) time.Duration {
	d := p.MaxDelay
	if attempt < 30 {
		if grown := p.BaseDelay << uint(attempt); grown > 0 && grown < p.MaxDelay {
			d = grown
		}
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half)
}

// Authorizer runs the one-time device authorization grant.
type Authorizer struct {
	httpClient *http.Client
	policy     PollPolicy
	logger     zerolog.Logger
}

// NewAuthorizer returns an Authorizer. Zero policy fields take DefaultPollPolicy values.
func NewAuthorizer(httpClient *http.Client, policy PollPolicy, logger zerolog.Logger) *Authorizer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Authorizer{
		httpClient: httpClient,
		policy:     policy.withDefaults(),
		logger:     logger,
	}
}

// Authorize submits the application for approval and waits until the user
// grants or refuses it on the router. It returns the app token on success.
// Nothing is persisted here.
func (a *Authorizer) Authorize(ctx context.Context, id *identity.Identity, baseURL string) (string, error) {
	req := authorizeRequest{
		AppID:      id.AppID,
		AppName:    id.AppName,
		AppVersion: id.AppVersion,
		DeviceName: id.DeviceName,
	}
	granted, err := callEnveloped[authorizeResult](ctx, a.httpClient, http.MethodPost, baseURL+"login/authorize", "", req)
	if err != nil {
		return "", &AuthorizationError{Op: "request", Err: err}
	}
	if granted.AppToken == "" {
		return "", &AuthorizationError{Op: "request", Err: errors.New("router returned an empty app token")}
	}

	a.logger.Info().
		Str("app_id", id.AppID).
		Int("track_id", granted.TrackID).
		Msg("Authorization requested, confirm it on the router display")

	if err := a.waitForGrant(ctx, baseURL, granted.TrackID); err != nil {
		return "", err
	}

	a.logger.Info().Str("app_id", id.AppID).Int("track_id", granted.TrackID).Msg("Authorization granted")
	return granted.AppToken, nil
}

func (a *Authorizer) waitForGrant(ctx context.Context, baseURL string, trackID int) error {
	pollCtx, cancel := context.WithTimeout(ctx, a.policy.Timeout)
	defer cancel()

	trackURL := fmt.Sprintf("%slogin/authorize/%d", baseURL, trackID)

	for attempt := 0; ; attempt++ {
		track, err := callEnveloped[authorizeTrack](pollCtx, a.httpClient, http.MethodGet, trackURL, "", nil)
		if err != nil {
			if pollErr := a.pollDone(ctx, pollCtx); pollErr != nil {
				return pollErr
			}
			return &AuthorizationError{Op: "poll", Err: err}
		}

		switch track.Status {
		case TrackStatusGranted:
			return nil
		case TrackStatusDenied:
			return &AuthorizationError{Op: "poll", Err: ErrAuthorizationDenied}
		case TrackStatusTimeout:
			return &AuthorizationError{Op: "poll", Err: ErrAuthorizationTimedOut}
		case TrackStatusUnknown:
			return &AuthorizationError{Op: "poll", Err: ErrAuthorizationRevoked}
		}

		delay := a.policy.delay(attempt)
		a.logger.Debug().
			Int("track_id", trackID).
			Str("status", track.Status).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Waiting for authorization")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-pollCtx.Done():
			timer.Stop()
			return a.pollDone(ctx, pollCtx)
		}
	}
}

// pollDone tells a caller cancellation apart from reaching the poll bound.
// It returns nil while the poll context is still live.
func (a *Authorizer) pollDone(parent, pollCtx context.Context) error {
	if pollCtx.Err() == nil {
		return nil
	}
	if err := parent.Err(); err != nil {
		return &AuthorizationError{Op: "poll", Err: err}
	}
	return &AuthorizationError{Op: "poll", Err: ErrAuthorizationTimedOut}
}
