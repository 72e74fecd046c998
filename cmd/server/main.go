/*
main.go - Application entry point

PURPOSE:
  Command line for the Jotaka reservation book: runs the HTTP server,
  applies schema migrations, and exports reservations as CSV.

COMMANDS:
  serve    Start the HTTP API (default)
  migrate  Apply pending migrations and print the schema version
  export   Write a period's reservations as CSV to a file or stdout

STARTUP SEQUENCE (serve):
  1. Load config (.env, JOTAKA_* variables, then flags)
  2. Initialize SQLite store (migrations run on open)
  3. Load status labels
  4. Create services and API handler
  5. Start server with graceful shutdown

GLOBAL FLAGS:
  --env-file   Optional dotenv file (default: .env)
  --db         SQLite database path, overrides JOTAKA_DB_PATH
               Use ":memory:" for in-memory database
  --log-level  Overrides JOTAKA_LOG_LEVEL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server serve --port=3000
  ./server --db=":memory:" serve
  ./server export --unit=asa_sul --period=month --out=june.csv

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/walterpribes/jotakareservas1/api"
	"github.com/walterpribes/jotakareservas1/config"
	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/report"
	"github.com/walterpribes/jotakareservas1/reservation"
	"github.com/walterpribes/jotakareservas1/store/sqlite"
)

func main() {
	app := &cli.App{
		Name:  "jotaka",
		Usage: "reservation book for the Jotaka restaurant group",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply pending schema migrations",
				Action: migrateDB,
			},
			{
				Name:  "export",
				Usage: "export reservations of a period as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "period", Value: "month", Usage: "day, week, month or year"},
					&cli.StringFlag{Name: "unit", Usage: "unit id; empty exports every unit"},
					&cli.StringFlag{Name: "out", Usage: "output file; empty writes to stdout"},
				},
				Action: export,
			},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("jotaka failed")
	}
}

// =============================================================================
// SETUP
// =============================================================================

type env struct {
	cfg   config.Config
	log   *logrus.Logger
	loc   *time.Location
	store *sqlite.Store
}

// setup loads config with flag overrides and opens the store.
func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return &env{cfg: cfg, log: log, loc: loc, store: store}, nil
}

func (e *env) services() (*reservation.Service, *notice.Service, error) {
	labels := reservation.NewStatusLabels(e.cfg.LabelsPath)
	if err := labels.Load(); err != nil {
		return nil, nil, err
	}
	return reservation.NewService(e.store, labels, e.log), notice.NewService(e.store), nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	reservations, notices, err := e.services()
	if err != nil {
		return err
	}
	handler := api.NewHandler(reservations, notices, e.loc, e.log)
	router := api.NewRouter(handler, e.cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         e.cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.WithFields(logrus.Fields{
			"addr":     server.Addr,
			"db":       e.cfg.DBPath,
			"timezone": e.cfg.Timezone,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		e.log.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	e.log.Info("server stopped")
	return nil
}

func migrateDB(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	version, dirty, err := e.store.SchemaVersion()
	if err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema up to date")
	return nil
}

func export(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.store.Close()

	period, err := report.ParsePeriod(c.String("period"))
	if err != nil {
		return err
	}
	unit := reservation.UnitID(c.String("unit"))
	if unit != "" {
		if _, ok := reservation.LookupUnit(unit); !ok {
			return fmt.Errorf("unknown unit %q", unit)
		}
	}

	reservations, _, err := e.services()
	if err != nil {
		return err
	}
	win := report.ResolveWindow(period, time.Now().In(e.loc))
	rs, err := reservations.List(c.Context, win.Filter(unit))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := report.ExportCSV(out, rs); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"rows":   len(rs),
		"period": period,
		"from":   win.From(),
		"to":     win.To(),
	}).Info("export written")
	return nil
}
