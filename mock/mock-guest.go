package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// A stand-in for the Android guest: every line typed on stdin is sent as a
// sensor command, and whatever the bridge publishes back is printed.
func main() {
	brokerURL := flag.String("broker", "mqtt://localhost:1883", "bridge MQTT address")
	clientID := flag.String("client-id", "guest", "MQTT client id; empty connects as a passive observer")
	username := flag.String("username", "guest", "MQTT username")
	password := flag.String("password", "guest", "MQTT password")
	commandTopic := flag.String("command-topic", "sensors/command", "topic commands are published on")
	flag.Parse()

	// App will run until cancelled by user (e.g. ctrl-c)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u, err := url.Parse(*brokerURL)
	if err != nil {
		log.Fatal(err)
	}

	id := *clientID
	if id == "" {
		id = "observer-" + uuid.NewString()
	}

	cliCfg := autopaho.ClientConfig{
		ConnectUsername:               *username,
		ConnectPassword:               []byte(*password),
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     20,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			log.Println("mqtt connection up as", id)
			// Subscribing in the OnConnectionUp callback re-establishes the
			// subscription after a reconnect
			if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: "sensors/status", QoS: 0},
					{Topic: "sensors/events", QoS: 0},
					{Topic: "sensors/readings/#", QoS: 0},
				},
			}); err != nil {
				log.Printf("failed to subscribe (%s); no sensor output will be shown", err)
			}
		},
		OnConnectError: func(err error) {
			log.Printf("error whilst attempting connection: %s\n", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: id,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					fmt.Printf("%s: %s\n", pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				}},
			OnClientError: func(err error) { log.Printf("client error: %s\n", err) },
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					log.Printf("server requested disconnect: %s\n", d.Properties.ReasonString)
				} else {
					log.Printf("server requested disconnect; reason code: %d\n", d.ReasonCode)
				}
			},
		},
	}

	c, err := autopaho.NewConnection(ctx, cliCfg) // reconnects until ctx is cancelled
	if err != nil {
		log.Fatal(err)
	}
	if err = c.AwaitConnection(ctx); err != nil {
		log.Fatal(err)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if err := c.Disconnect(context.Background()); err != nil {
					log.Println("disconnect failed:", err)
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, err := c.Publish(ctx, &paho.Publish{
				QoS:     0,
				Topic:   *commandTopic,
				Payload: []byte(line),
			}); err != nil {
				log.Println("failed to send command:", err)
			}
		case <-ctx.Done():
			<-c.Done()
			return
		}
	}
}
