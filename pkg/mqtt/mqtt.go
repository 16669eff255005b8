package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/benmeehan/freebox-agent/pkg/file"
)

// MQTTClient defines the interface for an MQTT client.
type MQTTClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MqttService provides methods for MQTT operations.
type MqttService struct {
	client         MQTTClient
	fileClient     file.FileOperations
	publishTimeout time.Duration
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(fileClient file.FileOperations, publishTimeout time.Duration) *MqttService {
	if publishTimeout <= 0 {
		publishTimeout = 10 * time.Second
	}
	return &MqttService{
		fileClient:     fileClient,
		publishTimeout: publishTimeout,
	}
}

// ClientID returns prefix followed by a random suffix, so that several
// agents can share a broker.
func ClientID(prefix string) string {
	if prefix == "" {
		prefix = "freebox-agent"
	}
	return prefix + "-" + uuid.NewString()
}

// Initialize sets up the MQTT client and connects. TLS is used when a CA
// certificate path is given.
func (s *MqttService) Initialize(broker, clientID, caCertPath string) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	if caCertPath != "" {
		caCert, err := s.fileClient.ReadFileRaw(caCertPath)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return fmt.Errorf("failed to append CA certificate")
		}
		opts.SetTLSConfig(&tls.Config{RootCAs: caCertPool, MinVersion: tls.VersionTLS12})
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(s.publishTimeout) {
		return fmt.Errorf("timed out connecting to %s", broker)
	}
	return token.Error()
}

// SetClient replaces the underlying client.
func (s *MqttService) SetClient(client MQTTClient) {
	s.client = client
}

// PublishPayload publishes payload and waits for the broker acknowledgement.
func (s *MqttService) PublishPayload(topic string, qos byte, payload []byte) error {
	if s.client == nil {
		return errors.New("mqtt client not initialized")
	}
	token := s.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(s.publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Disconnect gracefully disconnects the MQTT client.
func (s *MqttService) Disconnect(quiesce uint) {
	if s.client != nil {
		s.client.Disconnect(quiesce)
	}
}
