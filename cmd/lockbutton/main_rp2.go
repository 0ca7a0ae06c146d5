//go:build rp2040 && ninafw

package main

import (
	"context"
	"log/slog"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"lockbutton-go/bus"
	"lockbutton-go/services/config"
	"lockbutton-go/services/cycle"
	"lockbutton-go/services/hal/platform"
	"lockbutton-go/services/indicator"
)

const boardName = "nano-rp2040"

func main() {
	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	cfg, cfgErr := config.Embedded(boardName)
	if cfgErr == nil {
		cfgErr = config.Validate(cfg)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	config.Normalize(cfg)
	log := newLogger(uartx.UART0, cfg.Log.Level, false)

	board := platform.NewRP2(wiring(cfg), log)

	if cfgErr != nil {
		// Never reach the network with a config that cannot work.
		log.Error("main:config-invalid", slog.String("err", cfgErr.Error()))
		_ = sleepAfterFailure(board, cfg, log, indicator.AuthError)
		select {}
	}

	deps, err := buildDeps(cfg, board, bus.NewBus(4).NewConnection("cycle"), log)
	if err != nil {
		log.Error("main:wire-failed", slog.String("err", err.Error()))
		_ = sleepAfterFailure(board, cfg, log, indicator.APIError)
		select {}
	}
	cycle.Run(context.Background(), deps)
	select {}
}
