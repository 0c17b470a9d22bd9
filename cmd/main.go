package main

//
//  @title           jpticker API
//  @version         1.0
//  @description     Japanese ticker resolution and analysis gateway.
//  @termsOfService  https://github.com/guttosm/jpticker
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/jpticker
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        tickers
//  @tag.description Ticker resolution and lookup
//
//  @tag.name        sessions
//  @tag.description Selection state and analysis requests
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/jpticker/config"
	_ "github.com/guttosm/jpticker/docs" // swagger docs
	"github.com/guttosm/jpticker/internal/app"
	"github.com/guttosm/jpticker/internal/domain/dto"
	"github.com/guttosm/jpticker/internal/ingestion"
	"github.com/guttosm/jpticker/internal/logger"
	"github.com/guttosm/jpticker/internal/session"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runResolve prints the resolve result for q as JSON.
func runResolve(ctx context.Context, cfg config.Config, q string, w io.Writer) error {
	core, cleanup, err := app.BuildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return writeJSON(w, dto.NewResolveResponse(q, core.Resolver.Resolve(q)))
}

// runAnalyze resolves q, accepts the best match and prints the analysis response.
func runAnalyze(ctx context.Context, cfg config.Config, in session.AnalyzeInput, w io.Writer) error {
	core, cleanup, err := app.BuildCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := core.NewSession("cli").Analyze(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

type ingestOptions struct {
	inputs   []string
	out      string
	parallel int
	publish  bool
	kana     bool
}

// runIngest builds the dictionary document from JPX listings, optionally fills
// kana readings and optionally publishes it into PostgreSQL.
func runIngest(ctx context.Context, cfg config.Config, opts ingestOptions) error {
	recs, err := ingestion.BuildDictionary(ctx, opts.inputs, opts.parallel)
	if err != nil {
		return err
	}

	if opts.kana {
		reader, err := ingestion.NewKagomeReader()
		if err != nil {
			return err
		}
		n := ingestion.FillKana(recs, reader)
		logger.L().Info().Int("filled", n).Msg("kana readings generated")
	}

	if err := ingestion.WriteDocument(opts.out, ingestion.NewDocument(recs, "", time.Now())); err != nil {
		return err
	}

	if !opts.publish {
		return nil
	}
	db, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return ingestion.Publish(ctx, db, recs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// defaultAsOf is the analysis date used when --as-of is not given: today.
func defaultAsOf(now time.Time) string {
	return now.Format("2006-01-02")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// main is the entry point of the jpticker application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the REST API.
//   - resolve: Prints the candidates for --q.
//   - analyze: Resolves --q and sends it to the analysis API.
//   - ingest:  Builds tickers_jp.json from JPX listed-issues CSV exports.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "api", "Mode: api, resolve, analyze or ingest")
	q := flag.String("q", "", "Ticker query (resolve, analyze)")
	asOf := flag.String("as-of", defaultAsOf(time.Now()), "Analysis date YYYY-MM-DD, empty sends null (analyze)")
	analysisMode := flag.String("analysis-mode", "", "Analysis mode, default B (analyze)")
	in := flag.String("in", ingestion.DefaultJPXURL, "Comma-separated JPX listings, xls or CSV, paths or URLs (ingest)")
	out := flag.String("out", "tickers_jp.json", "Dictionary output path (ingest)")
	parallel := flag.Int("parallel", 0, "How many input files to parse concurrently (0=auto)")
	publish := flag.Bool("publish", false, "Also replace the tickers table in PostgreSQL (ingest)")
	kana := flag.Bool("kana", false, "Generate kana readings with the IPA dictionary (ingest)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	cfg := config.AppConfig

	switch *mode {
	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	case "resolve":
		if err := runResolve(ctx, cfg, *q, os.Stdout); err != nil {
			logger.L().Fatal().Err(err).Msg("resolve failed")
		}

	case "analyze":
		input := session.AnalyzeInput{Query: *q, AsOf: *asOf, Mode: *analysisMode}
		if err := runAnalyze(ctx, cfg, input, os.Stdout); err != nil {
			logger.L().Fatal().Err(err).Msg("analyze failed")
		}

	case "ingest":
		logger.L().Info().Msg("running dictionary build")
		opts := ingestOptions{inputs: splitList(*in), out: *out, parallel: *parallel, publish: *publish, kana: *kana}
		if err := runIngest(ctx, cfg, opts); err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed successfully")

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
