package mqtt

import (
	"fmt"
	"log/slog"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

type Subscription struct {
	topicFilter string
}

// Topics names the MQTT topics shared with the guest.
type Topics struct {
	Command       string
	Status        string
	Events        string
	ReadingPrefix string
}

type BrokerOptions struct {
	Address       string
	GuestUsername string
	GuestPassword string
	Topics        Topics
	Logger        *slog.Logger
}

type MochiBroker struct {
	server              *mochi.Server
	opts                BrokerOptions
	log                 *slog.Logger
	subscriberIdCounter int
	subscriptionsById   map[int]*Subscription
	subscriberMutex     sync.Mutex
}

func NewMochiBroker(server *mochi.Server, opts BrokerOptions) *MochiBroker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MochiBroker{
		server:              server,
		opts:                opts,
		log:                 logger.With(slog.String("component", "mqtt-broker")),
		subscriberIdCounter: 1,
		subscriptionsById:   make(map[int]*Subscription),
	}
}

// ledger lets the guest publish commands and read everything the bridge
// sends back. Local connections are trusted.
func (m *MochiBroker) ledger() *auth.Ledger {
	t := m.opts.Topics
	return &auth.Ledger{
		Auth: auth.AuthRules{ // Auth disallows all by default
			{Username: auth.RString(m.opts.GuestUsername), Password: auth.RString(m.opts.GuestPassword), Allow: true},
			{Remote: "127.0.0.1:*", Allow: true},
			{Remote: "[::1]:*", Allow: true},
		},
		ACL: auth.ACLRules{ // ACL allows all by default
			{Remote: "127.0.0.1:*"}, // local superuser allow all
			{Remote: "[::1]:*"},
			{
				Username: auth.RString(m.opts.GuestUsername), Filters: auth.Filters{
					auth.RString(t.Command):              auth.WriteOnly,
					auth.RString(t.Status):               auth.ReadOnly,
					auth.RString(t.Events):               auth.ReadOnly,
					auth.RString(t.ReadingPrefix + "/#"): auth.ReadOnly,
				},
			},
			{
				// Otherwise, no clients have publishing permissions
				Filters: auth.Filters{
					"#": auth.ReadOnly,
				},
			},
		},
	}
}

// Start installs the auth ledger and the given hooks, opens the TCP listener
// and serves in the background.
func (m *MochiBroker) Start(hooks []mochi.Hook, hookConfigs []any) error {
	if len(hooks) != len(hookConfigs) {
		return fmt.Errorf("got %d hooks but %d hook configs", len(hooks), len(hookConfigs))
	}

	err := m.server.AddHook(new(auth.Hook), &auth.Options{Ledger: m.ledger()})
	if err != nil {
		return fmt.Errorf("add auth hook: %w", err)
	}

	for i, hook := range hooks {
		if err := m.server.AddHook(hook, hookConfigs[i]); err != nil {
			return fmt.Errorf("add hook %s: %w", hook.ID(), err)
		}
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "guest", Address: m.opts.Address})
	if err := m.server.AddListener(tcp); err != nil {
		return fmt.Errorf("listen on %s: %w", m.opts.Address, err)
	}

	go func() {
		if err := m.server.Serve(); err != nil {
			m.log.Error("broker stopped serving", "error", err)
		}
	}()

	m.log.Info("broker started", "address", m.opts.Address)
	return nil
}

func (m *MochiBroker) Subscribe(topicFilter string,
	callbackFn func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet)) error {

	m.subscriberMutex.Lock()
	defer m.subscriberMutex.Unlock()
	err := m.server.Subscribe(topicFilter, m.subscriberIdCounter, callbackFn)
	if err != nil {
		return err
	}

	m.subscriptionsById[m.subscriberIdCounter] = &Subscription{topicFilter}
	m.subscriberIdCounter += 1

	return nil
}

func (m *MochiBroker) Close() error {
	m.subscriberMutex.Lock()
	for id, sub := range m.subscriptionsById {
		if err := m.server.Unsubscribe(sub.topicFilter, id); err != nil {
			m.log.Warn("unsubscribe failed", "topic", sub.topicFilter, "error", err)
		}
		delete(m.subscriptionsById, id)
	}
	m.subscriberMutex.Unlock()

	return m.server.Close()
}
