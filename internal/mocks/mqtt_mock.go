package mocks

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient is a mock implementation of the MQTTClient interface
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	args := m.Called()
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// MockPublisher is a mock implementation of the mqtt.Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPayload(topic string, qos byte, payload []byte) error {
	args := m.Called(topic, qos, payload)
	return args.Error(0)
}

func (m *MockPublisher) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// FakeToken is a completed mqtt.Token. TimedOut makes every wait report
// that the broker never acknowledged.
type FakeToken struct {
	TimedOut bool
	Err      error
}

func (t *FakeToken) Wait() bool                     { return !t.TimedOut }
func (t *FakeToken) WaitTimeout(time.Duration) bool { return !t.TimedOut }
func (t *FakeToken) Error() error                   { return t.Err }

func (t *FakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.TimedOut {
		close(ch)
	}
	return ch
}
