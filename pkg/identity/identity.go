package identity

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// DefaultAppVersion is announced to the router when none is configured.
const DefaultAppVersion = "1.0"

// Identity holds the application's identifier and the metadata shown on the
// router when it asks the user to approve the application.
type Identity struct {
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	DeviceName string `json:"device_name"`
}

// GenerateAppID returns a fresh random alphanumeric application id.
func GenerateAppID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ResolveAppID picks the application id for this run: the operator-supplied
// one first, then the persisted one, otherwise a newly generated id.
// generated reports whether the returned id is new and still needs persisting.
func ResolveAppID(configured, persisted string) (appID string, generated bool) {
	if configured != "" {
		return configured, false
	}
	if persisted != "" {
		return persisted, false
	}
	return GenerateAppID(), true
}

// New builds an Identity, defaulting the display fields to the app id.
func New(appID, appName, appVersion, deviceName string) (*Identity, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}
	if appName == "" {
		appName = appID
	}
	if deviceName == "" {
		deviceName = appID
	}
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	if _, err := semver.NewVersion(appVersion); err != nil {
		return nil, fmt.Errorf("invalid app version %q: %w", appVersion, err)
	}

	return &Identity{
		AppID:      appID,
		AppName:    appName,
		AppVersion: appVersion,
		DeviceName: deviceName,
	}, nil
}
