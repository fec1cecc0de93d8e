// Copyright 2026 The OpenHearth Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// otmon polls an OpenTherm boiler over a GPIO-attached interface circuit:
// it keeps the central heating enabled, writes the control setpoint and
// reports the slave status and boiler temperature once per interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	opentherm "github.com/openhearth/go-opentherm"
	"github.com/openhearth/go-opentherm/gpio"
)

type config struct {
	inPin    string
	outPin   string
	setpoint float64
	interval time.Duration
	debug    bool
}

// Package-level flag variables
var (
	flagInPin    string
	flagOutPin   string
	flagSetpoint float64
	flagInterval time.Duration
	flagDebug    bool
)

func init() {
	flag.StringVar(&flagInPin, "in", "GPIO4", "Input pin name (boiler to master)")
	flag.StringVar(&flagOutPin, "out", "GPIO5", "Output pin name (master to boiler)")
	flag.Float64Var(&flagSetpoint, "setpoint", 60, "Control setpoint in degrees Celsius")
	flag.DurationVar(&flagInterval, "interval", time.Second, "Polling interval")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		inPin:    flagInPin,
		outPin:   flagOutPin,
		setpoint: flagSetpoint,
		interval: flagInterval,
		debug:    flagDebug,
	}

	if cfg.debug {
		opentherm.SetDebugEnabled(true)
	}

	return cfg
}

// pollOnce performs one status + setpoint + temperature round against the
// boiler. Failed exchanges are reported and skipped; the protocol core does
// not retry, so the next interval simply tries again.
func pollOnce(ctx context.Context, engine *opentherm.Engine, cfg *config) {
	status, err := engine.SetBoilerStatus(ctx, true, true, false, false, false)
	if err != nil {
		fmt.Printf("status exchange failed: %v\n", err)
		return
	}
	fmt.Printf("status: fault=%t ch=%t dhw=%t flame=%t cooling=%t diag=%t\n",
		status.Fault(),
		status.CentralHeatingActive(),
		status.HotWaterActive(),
		status.FlameOn(),
		status.CoolingActive(),
		status.DiagnosticIndication())

	if err := engine.SetBoilerTemperature(ctx, cfg.setpoint); err != nil {
		fmt.Printf("setpoint write failed: %v\n", err)
	}

	temperature, err := engine.BoilerTemperature(ctx)
	if err != nil {
		fmt.Printf("temperature read failed: %v\n", err)
		return
	}
	fmt.Printf("boiler temperature: %.2f C\n", temperature)
}

func run() error {
	cfg := parseConfig()

	line, err := gpio.New(cfg.inPin, cfg.outPin)
	if err != nil {
		return fmt.Errorf("failed to open line: %w", err)
	}
	defer func() { _ = line.Close() }()

	engine, err := opentherm.New(line,
		opentherm.WithCompletionHandler(func(response opentherm.Frame, outcome opentherm.Outcome) {
			opentherm.Debugf("completion: %s %08X", outcome, uint32(response))
		}))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	fmt.Printf("starting on %s/%s (1s line settle)...\n", cfg.inPin, cfg.outPin)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer func() { _ = engine.Stop() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		pollOnce(ctx, engine, cfg)
		select {
		case <-ctx.Done():
			fmt.Println("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func main() {
	flag.Parse()
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "otmon: %v\n", err)
		os.Exit(1)
	}
}
