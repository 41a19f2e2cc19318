package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/ilievs/sensorbridge/core"
)

// Submitter runs a guest command and returns its status.
type Submitter interface {
	Submit(ctx context.Context, text string) (int, error)
}

// StatusReply is published on the status topic for every guest command.
type StatusReply struct {
	Command string `json:"command"`
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
}

// CommandHandler feeds guest commands received on the command topic to a
// Submitter and answers on the status topic.
type CommandHandler struct {
	submitter Submitter
	publisher Publisher
	topics    Topics
	timeout   time.Duration
	log       *slog.Logger
}

func NewCommandHandler(submitter Submitter, publisher Publisher, topics Topics, timeout time.Duration, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		submitter: submitter,
		publisher: publisher,
		topics:    topics,
		timeout:   timeout,
		log:       logger.With(slog.String("component", "mqtt-commands")),
	}
}

// Handle has the signature of an inline subscription callback.
func (h *CommandHandler) Handle(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
	text := string(pk.Payload)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	status, err := h.submitter.Submit(ctx, text)
	reply := StatusReply{Command: text, Status: status}
	if err != nil {
		if status >= 0 {
			// the command never reached the manager
			reply.Status = core.StatusCode(err)
		}
		reply.Error = err.Error()
		h.log.Info("guest command failed", "client", cl.ID, "command", text, "status", status, "error", err)
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		h.log.Error("failed to encode status reply", "error", err)
		return
	}
	if err := h.publisher.Publish(h.topics.Status, payload); err != nil {
		h.log.Warn("failed to publish status reply", "topic", h.topics.Status, "error", err)
	}
}
