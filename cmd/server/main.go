package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/veitw/crewcall/internal/config"
	"github.com/veitw/crewcall/internal/game"
	"github.com/veitw/crewcall/internal/httpapi"
	"github.com/veitw/crewcall/internal/metrics"
	"github.com/veitw/crewcall/internal/ws"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`CrewCall - session coordinator for in-person social deduction games

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT              Port to listen on (default: 8080)
  BASE_URL          Public URL embedded in join QR codes (default: http://localhost:8080)
  EXPORT_ENABLED    Append game results to a file (default: true)
  EXPORT_FILE       Path of the results file (default: ./crewcall-results.txt)
  SWEEP_INTERVAL    How often abandoned sessions are swept (default: 5m)
  SESSION_MAX_IDLE  Idle time before an abandoned session is dropped (default: 2h)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("CrewCall %s\n", version)
		return
	}

	// .env is optional
	_ = godotenv.Load()

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("processing the config")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC(), "version": version})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Socket sink + game registry + REST API
	sock := ws.New(nil)
	registry := game.NewRegistry(sock)
	sock.SetRegistry(registry)
	if cfg.ExportEnabled {
		registry.SetResultLog(game.NewResultLog(cfg.ExportFile))
	}
	registry.OnGameEnd(func(sum game.GameSummary) {
		metrics.GamesEnded.WithLabelValues(sum.Winner).Inc()
	})
	io := sock.Mount(r)
	defer io.Close()

	httpapi.New(registry, cfg.BaseURL).Mount(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zerologlog.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := registry.Sweep(cfg.SessionMaxIdle); n > 0 {
					zerologlog.Info().Int("removed", n).Msg("swept stale sessions")
				}
				metrics.SessionsActive.Set(float64(registry.Len()))
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zerologlog.Fatal().Err(err).Msg("server error")
	}
}
