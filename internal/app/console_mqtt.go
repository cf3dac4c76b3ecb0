// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/feed"
)

// RunConsoleMQTT prints rig status and results as they are published.
func RunConsoleMQTT(cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the MQTT console")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s feed.Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(s))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Subscribe to results
	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r feed.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: result unmarshal error: %v", err)
			return
		}
		fmt.Print(formatResult(r))
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicResult)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatStatus(s feed.Status) string {
	line := fmt.Sprintf("[STATUS] %s %-10s trial=%d/%d", s.Time, s.Phase, s.Trial, s.Trials)
	if s.TrialID != "" {
		line += " id=" + s.TrialID
	}
	if s.Message != "" {
		line += " " + s.Message
	}
	return line
}

func formatResult(r feed.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[RESULT] %s trials=%d\n", r.Time, r.Trials)
	for _, l := range r.Params.Lines() {
		fmt.Fprintf(&b, "         %s\n", l)
	}
	for _, p := range r.Peaks {
		fmt.Fprintf(&b, "         %-7s dist=%7.3fm  vmax=%6.3fm/s  amax=%6.3fm/s^2\n",
			p.Axis, p.Distance, p.MaxSpeed, p.MaxAccel)
	}
	return b.String()
}
