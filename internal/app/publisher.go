// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/feed"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

type publishFunc func(topic string, retained bool, payload []byte) error

// Publisher forwards runner progress to MQTT. A Publisher built without a
// broker drops everything, so callers never need to check.
type Publisher struct {
	client   mqtt.Client
	publish  publishFunc
	channels []string
	cfg      *config.Config
	now      func() time.Time
}

// NewPublisher connects to cfg.MQTTBroker. An empty broker yields a no-op
// publisher.
func NewPublisher(cfg *config.Config, v protocol.Variant) (*Publisher, error) {
	if cfg.MQTTBroker == "" {
		return &Publisher{cfg: cfg, channels: v.Channels, now: time.Now}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDHarness)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("publisher: connected to MQTT broker at %s", cfg.MQTTBroker)

	p := newPublisher(cfg, v, func(topic string, retained bool, payload []byte) error {
		token := client.Publish(topic, 0, retained, payload)
		token.Wait()
		return token.Error()
	})
	p.client = client
	return p, nil
}

func newPublisher(cfg *config.Config, v protocol.Variant, fn publishFunc) *Publisher {
	return &Publisher{cfg: cfg, channels: v.Channels, publish: fn, now: time.Now}
}

func (p *Publisher) send(topic string, retained bool, msg any) {
	if p.publish == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("publisher: marshal error: %v", err)
		return
	}
	if err := p.publish(topic, retained, payload); err != nil {
		log.Printf("publisher: publish to %s failed: %v", topic, err)
	}
}

func (p *Publisher) OnStatus(s capture.Status) {
	p.send(p.cfg.TopicStatus, true, feed.NewStatus(s, p.now()))
}

func (p *Publisher) OnSample(trialID string, s telemetry.Sample) {
	p.send(p.cfg.TopicSample, false, feed.NewSample(trialID, p.channels, s))
}

func (p *Publisher) OnSkip(string, string, protocol.ParseResult) {}

func (p *Publisher) OnTrial(int, *telemetry.Trial) {}

// OnResult is retained so late subscribers see the last run.
func (p *Publisher) OnResult(res trial.Result) {
	p.send(p.cfg.TopicResult, true, feed.NewResult(res, p.now()))
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("publisher: disconnected")
	}
	return nil
}
