package mqtt

// Publisher is the part of MqttService the metrics pipeline depends on.
type Publisher interface {
	// PublishPayload publishes payload to topic at the given QoS and waits
	// for the broker to acknowledge it.
	PublishPayload(topic string, qos byte, payload []byte) error

	// Disconnect closes the connection, waiting up to quiesce milliseconds
	// for in-flight work.
	Disconnect(quiesce uint)
}

var _ Publisher = (*MqttService)(nil)
