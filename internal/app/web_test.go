// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/config"
)

func TestWebResultAPI(t *testing.T) {
	cfg := config.Default()
	s := newWebServer(cfg)
	srv := httptest.NewServer(s.handler(t.TempDir()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/result")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.onMessage(cfg.TopicResult, []byte(`{"trials":3}`))
	s.onMessage(cfg.TopicResult, []byte(`not json`))

	resp, err = http.Get(srv.URL + "/api/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"trials":3}`, string(body))
}

func TestWebSocketFeed(t *testing.T) {
	cfg := config.Default()
	s := newWebServer(cfg)
	srv := httptest.NewServer(s.handler(t.TempDir()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.onMessage(cfg.TopicStatus, []byte(`{"phase":"started"}`))
	s.onMessage("some/other/topic", []byte(`{}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Kind)

	var status map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &status))
	assert.Equal(t, "started", status["phase"])
}
