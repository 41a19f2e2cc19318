package mqtt

import (
	"bytes"
	"errors"
	"log/slog"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"

	"github.com/ilievs/sensorbridge/core"
)

// ProcessorInstaller accepts the processor that should receive manager events.
type ProcessorInstaller interface {
	SetMessageProcessor(p core.MessageProcessor)
}

type HookOptions struct {
	GuestClientID string
	Processor     core.MessageProcessor
	Installer     ProcessorInstaller
	// OnGuestChange, if set, is told when the guest connects or leaves.
	OnGuestChange func(connected bool)
	Logger        *slog.Logger
}

// GuestSessionHook installs the guest processor on the sensor manager once
// the guest's MQTT session is up and removes it when the guest goes away.
type GuestSessionHook struct {
	mochi.HookBase
	guestID   string
	processor core.MessageProcessor
	installer ProcessorInstaller
	onChange  func(connected bool)
	log       *slog.Logger
}

// ID returns the ID of the hook.
func (h *GuestSessionHook) ID() string {
	return "GuestSessionHook"
}

// Provides indicates which methods a hook provides.
func (h *GuestSessionHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mochi.OnSessionEstablished,
		mochi.OnDisconnect,
	}, []byte{b})
}

func (h *GuestSessionHook) Init(config any) error {
	if _, ok := config.(*HookOptions); !ok && config != nil {
		return mochi.ErrInvalidConfigType
	}

	if config == nil {
		config = new(HookOptions)
	}

	opt := config.(*HookOptions)
	h.guestID = opt.GuestClientID
	h.processor = opt.Processor
	h.installer = opt.Installer
	h.onChange = opt.OnGuestChange
	h.log = opt.Logger
	if h.log == nil {
		h.log = slog.Default()
	}

	return nil
}

func (h *GuestSessionHook) isGuest(cl *mochi.Client) bool {
	return h.installer != nil && cl.ID == h.guestID
}

// OnSessionEstablished is called when a new client establishes a session (after OnConnect).
func (h *GuestSessionHook) OnSessionEstablished(cl *mochi.Client, pk packets.Packet) {
	if !h.isGuest(cl) {
		return
	}
	h.installer.SetMessageProcessor(h.processor)
	if h.onChange != nil {
		h.onChange(true)
	}
	h.log.Info("guest connected, event delivery enabled", "client", cl.ID)
}

// OnDisconnect is called when a client is disconnected for any reason. A
// connection replaced by a reconnecting guest fires after the new session is
// established, so it must leave the processor in place.
func (h *GuestSessionHook) OnDisconnect(cl *mochi.Client, err error, expire bool) {
	if !h.isGuest(cl) {
		return
	}
	if cl.IsTakenOver() || errors.Is(err, packets.ErrSessionTakenOver) {
		h.log.Info("guest session taken over by a new connection", "client", cl.ID)
		return
	}
	h.installer.SetMessageProcessor(nil)
	if h.onChange != nil {
		h.onChange(false)
	}
	h.log.Info("guest disconnected, event delivery disabled", "client", cl.ID, "error", err)
}
