// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/dekk_tester/internal/app"
	"github.com/relabs-tech/dekk_tester/internal/config"
)

func main() {
	configPath := flag.String("config", "./dekk_config.txt", "path to configuration file")
	port := flag.String("port", "", "serial port, or \"mock\" for the simulated rig (overrides SERIAL_PORT)")
	cmd := flag.String("cmd", "", "test command to send (default: rig profile, else the protocol trigger)")
	flag.Parse()

	log.Println("starting dekk tester producer (non-interactive)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.SerialPort = *port
	}

	if err := app.RunProducer(cfg, *cmd); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
