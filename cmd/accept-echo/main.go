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

	acceptecho "github.com/ericselin/vary-probe/pkg/accept-echo"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	portFlag           int
	configFilenameFlag string
	originsFlag        string
	verbosityTraceFlag bool

	// this is set by goreleaser
	version string
)

func init() {
	flag.IntVar(&portFlag, "port", 0, "Port to listen on (default 8880, overrides config)")
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originsFlag, "origins", "", "Comma-separated origins allowed to fetch cross-origin (default all)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Str("version", version).Logger()

	config := acceptecho.FileConfig{Port: 8880, Routes: acceptecho.DefaultRoutes()}
	if configFilenameFlag != "" {
		var err error
		if config, err = acceptecho.LoadConfig(configFilenameFlag); err != nil {
			log.Fatal().Err(err).Msg("Could not load config")
		}
	}
	if portFlag != 0 {
		config.Port = portFlag
	}
	if originsFlag != "" {
		config.AllowedOrigins = strings.Split(originsFlag, ",")
	}

	handler := acceptecho.New(acceptecho.Config{
		Routes:         config.Routes,
		AllowedOrigins: config.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for _, r := range config.Routes {
			log.Info().Bool("vary", r.Vary).Str("cacheControl", r.CacheControl).
				Msgf("Echoing Accept on http://localhost:%d%s", config.Port, r.Path)
		}
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
