package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hl2dod/mediaserver/pkg/admin"
	"github.com/hl2dod/mediaserver/pkg/config"
	"github.com/hl2dod/mediaserver/pkg/mgcp/command"
	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/transport"
	"github.com/hl2dod/mediaserver/pkg/rtp"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mediaserver: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logOutput io.Writer) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := newLogger(cfg.Logging, logOutput)
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.listen(); err != nil {
		return err
	}
	return a.serve(ctx)
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	}))
}

// app собранный медиасервер: MGCP транспорт, реестр точек и HTTP обслуживания
type app struct {
	logger        *slog.Logger
	endpoints     *endpoint.Registry
	server        *transport.Server
	notifier      *transport.Notifier
	admin         *admin.Server
	adminListener net.Listener
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	codecs, err := cfg.RTP.SupportedCodecs()
	if err != nil {
		return nil, err
	}
	ports, err := rtp.NewPortAllocator(cfg.RTP.Ports)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	connMetrics := connection.NewMetrics(reg)

	registry := endpoint.NewRegistry(logger)
	dispatcher := command.NewDispatcher(command.Deps{
		Endpoints: registry,
		Packages:  packages.DefaultRegistry(),
		Connections: command.ConnectionConfig{
			BindAddress:     cfg.RTP.BindAddress,
			ExternalAddress: cfg.RTP.ExternalAddress,
			Timeout:         cfg.RTP.Timeout,
		},
		Logger: logger,
	})
	dispatcher.Observe(command.NewMetrics(reg))

	server := transport.NewServer(transport.Config{
		Address:     cfg.MGCP.Address,
		Socket:      cfg.MGCP.Socket,
		MaxInFlight: cfg.MGCP.MaxInFlight,
		Logger:      logger,
	}, dispatcher)
	notifier := transport.NewNotifier(server, transport.NotifierConfig{
		Domain:      cfg.MGCP.Domain,
		CallAgent:   cfg.MGCP.CallAgentEntity(),
		Retransmit:  cfg.MGCP.NotifyRetransmit,
		MaxAttempts: cfg.MGCP.NotifyAttempts,
		Logger:      logger,
	})
	server.OnResponse(notifier.HandleResponse)

	for _, ns := range cfg.Endpoints {
		gc := endpoint.GenericConfig{
			Connection: connection.Config{Metrics: connMetrics, Logger: logger},
			Observers:  []endpoint.EventObserver{notifier},
			Logger:     logger,
		}
		if ns.Connections {
			gc.Sessions = func() connection.Session {
				return rtp.NewSession(rtp.SessionConfig{
					Codecs: codecs,
					Ports:  ports,
					Socket: cfg.RTP.Socket,
					Logger: logger,
				})
			}
		}
		if err := registry.RegisterProvider(endpoint.NewNamespaceProvider(ns.Namespace, endpoint.GenericFactory(gc))); err != nil {
			return nil, fmt.Errorf("endpoint namespace %q: %w", ns.Namespace, err)
		}
	}

	return &app{
		logger:    logger,
		endpoints: registry,
		server:    server,
		notifier:  notifier,
		admin:     admin.NewServer(cfg.Admin.Address, admin.NewRouter(registry, reg, logger), logger),
	}, nil
}

// listen открывает UDP сокет MGCP и TCP слушатель обслуживания
func (a *app) listen() error {
	if err := a.server.Listen(); err != nil {
		return err
	}
	listener, err := a.admin.Listen()
	if err != nil {
		a.server.Close()
		return fmt.Errorf("admin listen: %w", err)
	}
	a.adminListener = listener
	return nil
}

// serve работает до отмены ctx или ошибки одного из серверов
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Serve(ctx)
	})
	g.Go(func() error {
		return a.admin.Serve(ctx, a.adminListener)
	})

	a.logger.Info("media server started",
		"mgcp", a.server.LocalAddr().String(),
		"admin", a.adminListener.Addr().String())
	err := g.Wait()

	if cerr := a.notifier.Close(); cerr != nil {
		a.logger.Warn("notifier close failed", "error", cerr)
	}
	if cerr := a.endpoints.Close(); cerr != nil {
		a.logger.Warn("endpoint registry close failed", "error", cerr)
	}
	a.logger.Info("media server stopped")
	return err
}
