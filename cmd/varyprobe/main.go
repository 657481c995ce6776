package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	varyprobe "github.com/ericselin/vary-probe"
	"github.com/ericselin/vary-probe/history"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	urlFlag            string
	altHostFlag        string
	sequenceFlag       string
	configFilenameFlag string
	pageAcceptFlag     string
	checkFlag          bool
	timeoutFlag        time.Duration
	dbFilenameFlag     string
	historyFlag        int
	showRunFlag        string
	jsonLogFlag        bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&urlFlag, "url", "", "URL to probe, e.g. http://localhost:8880/echo-accept-header-w-vary")
	flag.StringVar(&altHostFlag, "alt-host", "", "Alternate host[:port] for the different-host probes (default: localhost <-> 127.0.0.1)")
	flag.StringVar(&sequenceFlag, "sequence", "", "Probe sequence: vary, basic or one defined in the config file (default vary)")
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&pageAcceptFlag, "page-accept", "", "Accept value of the simulated page load")
	flag.BoolVar(&checkFlag, "check", false, "Check results for Vary violations and exit non-zero if any")
	flag.DurationVar(&timeoutFlag, "timeout", 0, "Timeout per probe (default none)")
	flag.StringVar(&dbFilenameFlag, "db", "", "History DB file name; results are recorded if set")
	flag.IntVar(&historyFlag, "history", 0, "List the given number of recent runs from the history DB and exit")
	flag.StringVar(&showRunFlag, "show", "", "Show the run with the given id from the history DB and exit")
	flag.BoolVar(&jsonLogFlag, "json", false, "Log JSON lines instead of console output")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()
	setupLogging()
	os.Exit(run())
}

// run probes (or reads the history) and returns the exit code.
func run() int {
	var store history.HistoryProvider
	if dbFilenameFlag != "" {
		sqlite, err := history.NewSQLiteHistory(dbFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not open history DB")
		}
		defer sqlite.Close()
		store = sqlite
	}

	if historyFlag > 0 || showRunFlag != "" {
		if store == nil {
			log.Fatal().Msg("Please specify the history DB with -db")
		}
		var err error
		if showRunFlag != "" {
			err = showRun(store, showRunFlag)
		} else {
			err = listRuns(store, historyFlag)
		}
		if err != nil {
			log.Error().Err(err).Msg("Could not read history")
			return 1
		}
		return 0
	}

	var config varyprobe.FileConfig
	if configFilenameFlag != "" {
		var err error
		if config, err = varyprobe.LoadConfig(configFilenameFlag); err != nil {
			log.Fatal().Err(err).Msg("Could not load config")
		}
	}
	if urlFlag != "" {
		config.URL = urlFlag
	}
	if altHostFlag != "" {
		config.AltHost = altHostFlag
	}
	if pageAcceptFlag != "" {
		config.PageAccept = pageAcceptFlag
	}
	if sequenceFlag != "" {
		config.Sequence = sequenceFlag
	}
	if config.URL == "" {
		log.Fatal().Msg("Please specify the URL to probe")
	}
	currentURL, err := url.Parse(config.URL)
	if err != nil || currentURL.Host == "" {
		log.Fatal().Err(err).Str("url", config.URL).Msg("Could not parse url")
	}
	seq, err := config.LookupSequence(config.Sequence)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not select sequence")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger := log.With().Str("run", runID[:8]).Logger()
	prober := varyprobe.NewProber(varyprobe.Config{
		CurrentURL: *currentURL,
		Client:     &http.Client{Timeout: timeoutFlag},
		Logger:     &logger,
	})
	rep := newReporter(logger, store, runID, seq)

	logger.Info().Str("sequence", seq.Name).Int("steps", len(seq.Steps)).Msgf("Probing %s", currentURL)
	runErr := varyprobe.Run(ctx, prober, seq, config.AltHost, rep.observe)
	if runErr != nil {
		rep.fail(runErr)
		if isCanceled(runErr) {
			logger.Warn().Msg("Probe run interrupted")
		} else {
			logger.Error().Err(runErr).Msg("Probe run aborted")
		}
	}

	if checkFlag {
		violations := varyprobe.Check(rep.observations)
		for _, v := range violations {
			logger.Warn().Int("step", v.Step).Str("kind", string(v.Kind)).Msg(v.Message)
		}
		if len(violations) > 0 {
			logger.Error().Msgf("%d Vary violation(s) found", len(violations))
			return 2
		}
		if runErr == nil {
			logger.Info().Msg("No Vary violations found")
		}
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func setupLogging() {
	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	if jsonLogFlag {
		logOutputs = append(logOutputs, os.Stdout)
	} else {
		logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	}
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
