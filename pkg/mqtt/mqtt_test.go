package mqtt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/freebox-agent/internal/mocks"
)

func TestClientID(t *testing.T) {
	id := ClientID("linestats")
	assert.True(t, strings.HasPrefix(id, "linestats-"))
	assert.NotEqual(t, id, ClientID("linestats"))
	assert.True(t, strings.HasPrefix(ClientID(""), "freebox-agent-"))
}

func TestPublishPayload(t *testing.T) {
	token := &mocks.FakeToken{}

	client := &mocks.MockMQTTClient{}
	client.On("Publish", "freebox/metrics", byte(1), false, []byte("line")).Return(token)

	s := NewMqttService(nil, time.Second)
	s.SetClient(client)

	assert.NoError(t, s.PublishPayload("freebox/metrics", 1, []byte("line")))
	client.AssertExpectations(t)
}

func TestPublishPayload_Failures(t *testing.T) {
	s := NewMqttService(nil, time.Second)
	assert.Error(t, s.PublishPayload("t", 0, nil))

	timedOut := &mocks.FakeToken{TimedOut: true}
	failed := &mocks.FakeToken{Err: errors.New("not connected")}

	client := &mocks.MockMQTTClient{}
	client.On("Publish", "a", byte(0), false, mock.Anything).Return(timedOut)
	client.On("Publish", "b", byte(0), false, mock.Anything).Return(failed)
	s.SetClient(client)

	assert.ErrorContains(t, s.PublishPayload("a", 0, []byte("x")), "timed out")
	assert.ErrorContains(t, s.PublishPayload("b", 0, []byte("x")), "not connected")
}

func TestDisconnect(t *testing.T) {
	client := &mocks.MockMQTTClient{}
	client.On("Disconnect", uint(250)).Return()

	s := NewMqttService(nil, 0)
	s.Disconnect(250) // no client yet
	s.SetClient(client)
	s.Disconnect(250)

	client.AssertNumberOfCalls(t, "Disconnect", 1)
}
