// Package telemetry publishes controller snapshots to an MQTT broker.
// Telemetry is strictly optional: a broker that is down, slow or absent
// never stalls or degrades the control loop.
package telemetry

import (
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/MaulikItaliya/phreg/pkg/phreg"
)

const publishTimeout = 2 * time.Second

// Publisher emits each snapshot as JSON on a fixed topic with QoS 0.
type Publisher struct {
	client    mqtt.Client
	topic     string
	connected atomic.Bool
}

// NewPublisher builds a publisher for broker; it connects in the background
// and retries forever. An empty broker yields a disabled publisher.
func NewPublisher(broker, topic, clientID string) *Publisher {
	p := &Publisher{topic: topic}
	if broker == "" {
		return p
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		p.connected.Store(true)
		log.Printf("[telemetry] connected to %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.connected.Store(false)
		log.Printf("[telemetry] connection lost: %v", err)
	}

	p.client = mqtt.NewClient(opts)
	// ConnectRetry is on: the token resolves whenever the broker shows up.
	p.client.Connect()
	return p
}

// Emit publishes snap. Marshal and publish failures are logged and dropped.
func (p *Publisher) Emit(snap phreg.Snapshot) {
	if p.client == nil || !p.connected.Load() {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[telemetry] marshal: %v", err)
		return
	}
	tok := p.client.Publish(p.topic, 0, false, raw)
	if !tok.WaitTimeout(publishTimeout) {
		log.Printf("[telemetry] publish timeout on %s", p.topic)
		return
	}
	if err := tok.Error(); err != nil {
		log.Printf("[telemetry] publish: %v", err)
	}
}

// Close disconnects from the broker if connected.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

var _ phreg.Sink = (*Publisher)(nil)
