package mqtt

import (
	mochi "github.com/mochi-mqtt/server/v2"
)

// Publisher sends a payload on a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MochiClient publishes through the broker's inline client.
type MochiClient struct {
	server *mochi.Server
}

func NewMochiClient(server *mochi.Server) *MochiClient {
	return &MochiClient{
		server,
	}
}

// Publish sends at QoS 0 without retaining; stale sensor events are useless
// to a guest that connects later.
func (m *MochiClient) Publish(topic string, payload []byte) error {
	return m.server.Publish(topic, payload, false, 0)
}
