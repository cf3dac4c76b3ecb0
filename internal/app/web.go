// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/dekk_tester/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsMessage is what browsers receive on /ws: the MQTT payload untouched,
// tagged with the kind of message it is.
type wsMessage struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type webServer struct {
	cfg *config.Config

	mu         sync.RWMutex
	lastResult []byte
	lastStatus []byte

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

func newWebServer(cfg *config.Config) *webServer {
	return &webServer{cfg: cfg, conns: make(map[*websocket.Conn]struct{})}
}

// RunWeb serves the latest rig result and a live feed, fed from MQTT.
func RunWeb(cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the web server")
	}
	s := newWebServer(cfg)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	for _, topic := range []string{cfg.TopicStatus, cfg.TopicSample, cfg.TopicResult} {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			s.onMessage(msg.Topic(), msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("web: subscribed to MQTT topic %s", topic)
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, s.handler("web"))
}

func (s *webServer) handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/result", s.serveLast(func() []byte { return s.lastResult }))
	mux.HandleFunc("/api/status", s.serveLast(func() []byte { return s.lastStatus }))
	mux.HandleFunc("/ws", s.serveWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

func (s *webServer) kind(topic string) string {
	switch topic {
	case s.cfg.TopicResult:
		return "result"
	case s.cfg.TopicStatus:
		return "status"
	case s.cfg.TopicSample:
		return "sample"
	default:
		return ""
	}
}

// onMessage records retained state and forwards the payload to every
// websocket client.
func (s *webServer) onMessage(topic string, payload []byte) {
	kind := s.kind(topic)
	if kind == "" || !json.Valid(payload) {
		log.Printf("web: ignoring message on %s", topic)
		return
	}

	s.mu.Lock()
	switch kind {
	case "result":
		s.lastResult = append([]byte(nil), payload...)
	case "status":
		s.lastStatus = append([]byte(nil), payload...)
	}
	s.mu.Unlock()

	out, err := json.Marshal(wsMessage{Kind: kind, Data: payload})
	if err != nil {
		log.Printf("web: marshal error: %v", err)
		return
	}
	s.broadcast(out)
}

func (s *webServer) serveLast(get func() []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		body := get()
		s.mu.RUnlock()

		if body == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			log.Printf("web: write error: %v", err)
		}
	}
}

func (s *webServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
	log.Printf("web: websocket client connected from %s", r.RemoteAddr)

	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(conn)
}

func (s *webServer) drop(conn *websocket.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
	conn.Close()
}

func (s *webServer) broadcast(msg []byte) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			delete(s.conns, conn)
			conn.Close()
		}
	}
}

func (s *webServer) clients() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}
