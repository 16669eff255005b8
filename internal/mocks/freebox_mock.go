package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// MockFreeboxAPI is a mock implementation of the router client used by
// collectors and the control surface.
type MockFreeboxAPI struct {
	mock.Mock
}

func (m *MockFreeboxAPI) APIDomain() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockFreeboxAPI) GetConnectionStatus(ctx context.Context) (freebox.ConnectionStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(freebox.ConnectionStatus), args.Error(1)
}

func (m *MockFreeboxAPI) GetXDSLConnectionStatus(ctx context.Context) (freebox.XDSLConnectionStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(freebox.XDSLConnectionStatus), args.Error(1)
}

func (m *MockFreeboxAPI) GetLANInterfaces(ctx context.Context) ([]freebox.LanInterface, error) {
	args := m.Called(ctx)
	ifaces, _ := args.Get(0).([]freebox.LanInterface)
	return ifaces, args.Error(1)
}

func (m *MockFreeboxAPI) GetHostsOnLAN(ctx context.Context, iface string) ([]freebox.LanHost, error) {
	args := m.Called(ctx, iface)
	hosts, _ := args.Get(0).([]freebox.LanHost)
	return hosts, args.Error(1)
}

func (m *MockFreeboxAPI) GetWifiStatus(ctx context.Context) (freebox.WifiState, error) {
	args := m.Called(ctx)
	return args.Get(0).(freebox.WifiState), args.Error(1)
}

func (m *MockFreeboxAPI) UpdateWifiStatus(ctx context.Context, update freebox.UpdateWifiState) (freebox.WifiState, error) {
	args := m.Called(ctx, update)
	return args.Get(0).(freebox.WifiState), args.Error(1)
}

// MockDiscoverer is a mock implementation of the endpoint discovery.
type MockDiscoverer struct {
	mock.Mock
}

func (m *MockDiscoverer) Discover(ctx context.Context) (*freebox.EndpointDescriptor, error) {
	args := m.Called(ctx)
	desc, _ := args.Get(0).(*freebox.EndpointDescriptor)
	return desc, args.Error(1)
}
