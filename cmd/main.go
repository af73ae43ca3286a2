package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/dunkelstern/obs-touchosc/internal/bridge"
	"github.com/dunkelstern/obs-touchosc/internal/config"
	"github.com/dunkelstern/obs-touchosc/internal/handler"
	"github.com/dunkelstern/obs-touchosc/internal/osc"
	"github.com/dunkelstern/obs-touchosc/internal/switcher"
	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/dunkelstern/obs-touchosc/pkg/pubsub"
)

const serviceName = "obs-touchosc"

var errSwitcherClosed = errors.New("switcher connection closed")

func main() {
	configFile := flag.String("config", "", "path to config file (default ./config/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configFile)
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: serviceName})
	logger := pkglog.L()

	// Runs after every other deferred cleanup.
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	logger.Info().
		Str("obs", fmt.Sprintf("%s:%d", cfg.OBS.Host, cfg.OBS.Port)).
		Str("touchosc", fmt.Sprintf("%s:%d", cfg.TouchOSC.Host, cfg.TouchOSC.Port)).
		Str("bridge", cfg.Bridge.Name).
		Msg("starting " + serviceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = pkglog.WithComponent(ctx, "bridge")

	// Initialize event bus (optional)
	var notifier *bridge.Notifier
	ps, err := pubsub.NewPubSub(cfg.PubSub)
	switch {
	case errors.Is(err, pubsub.ErrDisabled):
		logger.Info().Msg("event bus disabled")
	case err != nil:
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to initialize pubsub")
	default:
		defer ps.Close()
		notifier = bridge.NewNotifier(cfg.Bridge.Name, ps, 64)
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("connected to event bus")
	}

	// Connect to the switcher
	obs := switcher.NewClient(cfg.OBS)
	if err := obs.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Str("host", cfg.OBS.Host).Int("port", cfg.OBS.Port).Msg("failed to connect to obs")
	}
	defer obs.Close()
	logger.Info().Str("host", cfg.OBS.Host).Int("port", cfg.OBS.Port).Msg("connected to obs")

	sender := osc.NewSender(cfg.TouchOSC.Host, cfg.TouchOSC.Port, cfg.TouchOSC.SendBuffer)

	// Initialize engine
	var opts []bridge.Option
	if notifier != nil {
		opts = append(opts, bridge.WithStatusPublisher(notifier))
	}
	engine, err := bridge.NewEngine(cfg.Bridge, obs, sender, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bridge engine")
	}
	if err := engine.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start bridge")
	}
	defer engine.Stop()

	oscServer, err := osc.Listen(cfg.OSC.Host, cfg.OSC.Port, engine.Router())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start osc server")
	}

	if cfg.Zeroconf.Enabled {
		shutdown, err := osc.Advertise(cfg.Zeroconf.Instance, oscServer.Port(), []string{"bridge=" + cfg.Bridge.Name})
		if err != nil {
			logger.Warn().Err(err).Msg("mdns advertisement disabled")
		} else {
			defer shutdown()
			logger.Info().Str("instance", cfg.Zeroconf.Instance).Msg("advertising osc service")
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return sender.Run(gctx) })
	g.Go(func() error { return oscServer.Serve(gctx) })

	if notifier != nil {
		g.Go(func() error { return notifier.Run(gctx) })
		g.Go(func() error {
			if err := notifier.ServeControl(gctx, engine.Control); err != nil {
				logger.Warn().Err(err).Msg("remote control disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-obs.Done():
			return errSwitcherClosed
		case <-gctx.Done():
			return nil
		}
	})

	if cfg.Admin.Enabled {
		server := newAdminServer(cfg, engine)
		g.Go(func() error {
			logger.Info().Str("addr", server.Addr).Msg("admin api listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("admin server forced to shutdown")
			}
			return nil
		})
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case s := <-quit:
			logger.Info().Str("signal", s.String()).Msg("shutting down " + serviceName)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg(serviceName + " stopped with error")
		exitCode = 1
		return
	}
	logger.Info().Msg(serviceName + " stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newAdminServer(cfg *config.Config, engine *bridge.Engine) *http.Server {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(pkglog.Component("admin")))

	handler.NewHandler(engine).RegisterRoutes(r)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
