// Command pwmd drives a PCA9685 16-channel PWM controller and exposes it
// over a small HTTP API. Run with --transport mock to use simulated hardware
// (no I2C device required).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/edgehw/pwmd/internal/api"
	"github.com/edgehw/pwmd/internal/bus"
	"github.com/edgehw/pwmd/internal/controller"
	"github.com/edgehw/pwmd/internal/events"
	"github.com/edgehw/pwmd/internal/pca9685"
	"github.com/edgehw/pwmd/internal/presets"
	"github.com/edgehw/pwmd/internal/zeroconf"
)

func main() {
	var (
		transport = flag.String("transport", "i2c", "bus transport: i2c, periph, serial or mock")
		dev       = flag.String("dev", "/dev/i2c-1", "I2C character device (i2c) or serial device (serial)")
		busName   = flag.String("bus", "", "periph.io bus name (periph transport; empty = first available)")
		baud      = flag.Int("baud", 9600, "serial baud rate (serial transport)")
		devAddr   = flag.Uint("device-address", uint(pca9685.DefaultAddress), "PCA9685 I2C address")
		freq      = flag.Float64("freq", pca9685.DefaultFrequencyHz, "PWM cycle frequency in Hz")
		addr      = flag.String("addr", ":8090", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/pwmd)")
		debug     = flag.Bool("debug", false, "enable debug logging (includes every register write)")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "pwmd")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bus transport
	b, err := openTransport(*transport, *dev, *busName, *baud)
	if err != nil {
		slog.Error("transport initialization failed", "transport", *transport, "err", err)
		os.Exit(1)
	}
	defer b.Close()
	slog.Info("bus transport ready", "transport", *transport)

	// Driver — wait for the device init sequence to finish before serving.
	ready := make(chan error, 1)
	drv, err := pca9685.New(pca9685.Config{
		Bus:         b,
		Address:     byte(*devAddr),
		FrequencyHz: *freq,
		Debug:       *debug,
	}, func(err error) { ready <- err })
	if err != nil {
		slog.Error("driver configuration invalid", "err", err)
		os.Exit(1)
	}
	select {
	case err := <-ready:
		if err != nil {
			slog.Error("device initialization failed", "err", err)
			os.Exit(1)
		}
	case <-time.After(5 * time.Second):
		slog.Error("device initialization timed out")
		os.Exit(1)
	}
	defer drv.Close()
	slog.Info("pca9685 initialized",
		"address", fmt.Sprintf("0x%02X", drv.Address()),
		"freq_hz", drv.Frequency(),
		"step_us", drv.StepLengthMicros(),
	)

	// Preset store
	store, err := presets.NewStore(*cfgDir)
	if err != nil {
		slog.Error("preset store initialization failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// Event bus + controller
	evBus := events.NewBus()
	ctrl := controller.New(drv, store, evBus, *transport)

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "pwmd"
	}
	port := 8090
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	// HTTP server
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(ctrl, evBus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("pwmd listening", "addr", *addr, "transport", *transport, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

// openTransport selects and opens the configured bus transport.
func openTransport(transport, dev, busName string, baud int) (bus.Bus, error) {
	switch transport {
	case "mock":
		slog.Info("using mock bus transport")
		return bus.NewMock(), nil
	case "i2c":
		return bus.NewI2C(dev)
	case "periph":
		return bus.NewPeriph(busName)
	case "serial":
		return bus.NewSC18IM(dev, baud)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
