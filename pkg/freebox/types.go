package freebox

import "encoding/json"

// envelope is the router's uniform response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   string          `json:"msg,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// APIVersion is the self-description document served by the bootstrap address.
type APIVersion struct {
	UID            string `json:"uid"`
	DeviceName     string `json:"device_name"`
	APIVersion     string `json:"api_version"`
	APIBaseURL     string `json:"api_base_url"`
	DeviceType     string `json:"device_type"`
	APIDomain      string `json:"api_domain"`
	HTTPSAvailable bool   `json:"https_available"`
	HTTPSPort      uint16 `json:"https_port"`
}

type authorizeRequest struct {
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	DeviceName string `json:"device_name"`
}

type authorizeResult struct {
	AppToken string `json:"app_token"`
	TrackID  int    `json:"track_id"`
}

// Authorization track statuses.
const (
	TrackStatusUnknown = "unknown"
	TrackStatusPending = "pending"
	TrackStatusTimeout = "timeout"
	TrackStatusGranted = "granted"
	TrackStatusDenied  = "denied"
)

type authorizeTrack struct {
	Status    string `json:"status"`
	Challenge string `json:"challenge,omitempty"`
}

type loginResult struct {
	LoggedIn  bool   `json:"logged_in"`
	Challenge string `json:"challenge"`
}

type sessionRequest struct {
	AppID    string `json:"app_id"`
	Password string `json:"password"`
}

type sessionResult struct {
	SessionToken string `json:"session_token"`
}

// ConnectionStatus is the WAN connection state.
type ConnectionStatus struct {
	Type          string `json:"type"`  // ethernet, rfc2684, pppoatm
	Media         string `json:"media"` // ftth, xdsl
	State         string `json:"state"` // going_up, up, going_down, down
	RateDown      uint32 `json:"rate_down"`
	RateUp        uint32 `json:"rate_up"`
	BytesDown     uint64 `json:"bytes_down"`
	BytesUp       uint64 `json:"bytes_up"`
	BandwidthDown uint32 `json:"bandwidth_down"`
	BandwidthUp   uint32 `json:"bandwidth_up"`
	IPv4          string `json:"ipv4"`
	IPv6          string `json:"ipv6"`
}

// XDSLStatus describes the DSL line state.
type XDSLStatus struct {
	Status     string `json:"status"`
	Protocol   string `json:"protocol"`
	Modulation string `json:"modulation"`
	Uptime     uint32 `json:"uptime"`
}

// XDSLStats holds per-direction line statistics.
type XDSLStats struct {
	MaxRate    uint32  `json:"maxrate"`
	Rate       uint32  `json:"rate"`
	SNR        uint32  `json:"snr"`
	Attn       uint32  `json:"attn"`
	SNR10      uint32  `json:"snr_10"`
	Attn10     uint32  `json:"attn_10"`
	FEC        uint32  `json:"fec"`
	CRC        uint32  `json:"crc"`
	HEC        uint32  `json:"hec"`
	ES         uint32  `json:"es"`
	SES        uint32  `json:"ses"`
	PhyR       bool    `json:"phyr"`
	GINP       bool    `json:"ginp"`
	Nitro      bool    `json:"nitro"`
	RXMT       *uint32 `json:"rxmt,omitempty"`
	RXMTCorr   *uint32 `json:"rxmt_corr,omitempty"`
	RXMTUncorr *uint32 `json:"rxmt_uncorr,omitempty"`
	RTXTX      *uint32 `json:"rtx_tx,omitempty"`
	RTXC       *uint32 `json:"rtx_c,omitempty"`
	RTXUC      *uint32 `json:"rtx_uc,omitempty"`
}

// XDSLConnectionStatus groups the line status with both directions' stats.
type XDSLConnectionStatus struct {
	Status XDSLStatus `json:"status"`
	Up     XDSLStats  `json:"up"`
	Down   XDSLStats  `json:"down"`
}

// LanInterface is a LAN browser interface such as "pub".
type LanInterface struct {
	Name      string `json:"name"`
	HostCount int    `json:"host_count"`
}

type LanHostName struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type LanHostL2Ident struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type LanHostL3Connectivity struct {
	Addr              string `json:"addr"`
	AF                string `json:"af"`
	Active            bool   `json:"active"`
	Reachable         bool   `json:"reachable"`
	LastActivity      uint64 `json:"last_activity"`
	LastTimeReachable uint64 `json:"last_time_reachable"`
}

// LanHost is a device seen by the router's LAN browser.
type LanHost struct {
	ID                string                  `json:"id"`
	PrimaryName       string                  `json:"primary_name"`
	HostType          string                  `json:"host_type"`
	PrimaryNameManual bool                    `json:"primary_name_manual"`
	L2Ident           LanHostL2Ident          `json:"l2ident"`
	VendorName        string                  `json:"vendor_name"`
	Persistent        bool                    `json:"persistent"`
	Reachable         bool                    `json:"reachable"`
	LastTimeReachable uint64                  `json:"last_time_reachable"`
	Active            bool                    `json:"active"`
	LastActivity      uint64                  `json:"last_activity"`
	Names             []LanHostName           `json:"names,omitempty"`
	L3Connectivities  []LanHostL3Connectivity `json:"l3connectivities,omitempty"`
}

// WifiState is the global Wi-Fi configuration.
type WifiState struct {
	Enabled        bool   `json:"enabled"`
	MacFilterState string `json:"mac_filter_state"`
}

// UpdateWifiState is the body of a Wi-Fi configuration update.
type UpdateWifiState struct {
	Enabled bool `json:"enabled"`
}
