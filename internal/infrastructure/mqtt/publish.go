package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// validatePublish rejects a publish before it reaches the broker connection.
func (c *Client) validatePublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// PublishAsync hands a message to the broker connection without waiting for
// acknowledgment. Validation and connection errors are returned immediately;
// delivery failures are reported to the logger from a background goroutine.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "home/devices/relay3")
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers;
//     relay commands are retained so a rebooted controller resyncs
//
// This is the publish path used while the relay state lock is held.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.validatePublish(topic, payload, qos); err != nil {
		return err
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT publish not acknowledged", "topic", topic, "timeout", defaultPublishTimeout)
			}
			return
		}
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT publish failed", "topic", topic, "error", err)
			}
		}
	}()

	return nil
}
