// Command waterfight starts the Water Fight game server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Every flag has an environment variable counterpart, and a .env file in the
// working directory is loaded before flags are parsed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/waterfight/api"
	"github.com/wricardo/mcp-training/waterfight/game/archive"
	"github.com/wricardo/mcp-training/waterfight/game/config"
	"github.com/wricardo/mcp-training/waterfight/game/service"
	"github.com/wricardo/mcp-training/waterfight/game/session"
	"github.com/wricardo/mcp-training/waterfight/transport/mcp"
	"github.com/wricardo/mcp-training/waterfight/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Water Fight Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
	probeAttempts   = 8
)

// options holds the resolved command-line configuration
type options struct {
	Host        string
	Port        int
	ConfigDir   string
	ResultsDB   string
	IDStyle     string
	LogLevel    string
	Pretty      bool
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (o options) addr() string {
	return net.JoinHostPort(o.Host, fmt.Sprint(o.Port))
}

func main() {
	// Missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

// newCommand builds the root command with its subcommands
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "waterfight",
		Usage:   "Turn-based water fight against hidden forts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "results-db", Usage: "SQLite file for finished games (empty keeps them in memory)", Sources: cli.EnvVars("RESULTS_DB")},
			&cli.StringFlag{Name: "id-style", Value: "seq", Usage: "Game ID style: seq or hex", Sources: cli.EnvVars("ID_STYLE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "pretty", Usage: "Human-friendly console logs", Sources: cli.EnvVars("LOG_PRETTY")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(cmd.String("log-level"), cmd.Bool("pretty"))
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal HTTP API when none is reachable",
				Action:  stdioAction,
			},
		},
		Action: serverAction,
	}
}

func optionsFromCommand(cmd *cli.Command) options {
	return options{
		Host:        cmd.String("host"),
		Port:        int(cmd.Int("port")),
		ConfigDir:   cmd.String("config-dir"),
		ResultsDB:   cmd.String("results-db"),
		IDStyle:     cmd.String("id-style"),
		LogLevel:    cmd.String("log-level"),
		Pretty:      cmd.Bool("pretty"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}
}

// setupLogging configures the global zerolog logger. Logs always go to
// stderr so stdout stays free for the MCP stdio protocol.
func setupLogging(level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty || isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

// services bundles the wired application components
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
	results  archive.Store
}

// initializeServices wires the config, session and archive layers into the game service
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	var results archive.Store
	if opts.ResultsDB != "" {
		store, err := archive.OpenSQLite(opts.ResultsDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open results database: %w", err)
		}
		results = store
	} else {
		results = archive.NewMemoryStore()
	}

	sessionManager := session.NewManager(session.WithAllocator(session.NewAllocator(opts.IDStyle)))
	hub := websocket.NewHub()

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithArchive(results),
		service.WithPublisher(hub),
	)

	return &services{
		game:     gameService,
		sessions: sessionManager,
		hub:      hub,
		results:  results,
	}, nil
}

func (s *services) Close() error {
	return s.results.Close()
}

// newRootHandler mounts the API at / and the MCP JSON-RPC endpoint at /mcp
func newRootHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no reply
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mux
}

// cleanupRoutine periodically removes games that have not been accessed recently
func cleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpired(maxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("Cleaned up expired games")
			}
		}
	}
}

// serverAction runs the HTTP server until SIGINT/SIGTERM
func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFromCommand(cmd)
	log.Info().Str("version", Version).Str("mode", "server").Msgf("Starting %s", AppName)

	svc, err := initializeServices(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := opts.addr()
	apiServer := api.NewServer(svc.game, svc.hub, Version)
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newRootHandler(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svc.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		cleanupRoutine(gctx, svc.sessions, cleanupInterval, sessionMaxAge)
		return nil
	})

	g.Go(func() error {
		log.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("ws", "ws://"+addr+"/ws?game=<game_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if opts.Ngrok {
		g.Go(func() error {
			runNgrok(gctx, opts, handler)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	err = multierr.Append(err, svc.Close())
	log.Info().Msg("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
// Tunnel failures are logged and never stop the local server.
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.NgrokAuth == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Info().Str("domain", opts.NgrokDomain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("mcp", ngrokURL+"/mcp").
		Msg("Ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// probeAPI reports whether an API server answers at baseURL
func probeAPI(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/about", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// waitForAPI polls baseURL with exponential backoff until it answers or attempts run out
func waitForAPI(ctx context.Context, baseURL string, attempts int) error {
	client := &http.Client{Timeout: 2 * time.Second}
	b := &backoff.Backoff{
		Min:    10 * time.Millisecond,
		Max:    500 * time.Millisecond,
		Factor: 2,
	}

	for i := 0; i < attempts; i++ {
		if probeAPI(ctx, client, baseURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return fmt.Errorf("API server at %s not ready after %d attempts", baseURL, attempts)
}

// stdioAction runs an MCP stdio server. It reuses an API already listening on
// the configured address, otherwise it starts an internal one on a random
// loopback port.
func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFromCommand(cmd)
	externalURL := "http://" + opts.addr()

	log.Info().Str("url", externalURL).Msg("Checking for external API server")
	probeClient := &http.Client{Timeout: 2 * time.Second}
	if probeAPI(ctx, probeClient, externalURL) {
		log.Info().Str("url", externalURL).Msg("MCP stdio server ready (using external HTTP server)")
		return server.ServeStdio(mcp.NewClient(externalURL).GetMCPServer())
	}

	log.Info().Msg("No external API server found, starting internal HTTP server")

	svc, err := initializeServices(opts)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return multierr.Append(fmt.Errorf("failed to get available port: %w", err), svc.Close())
	}
	baseURL := "http://" + listener.Addr().String()

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go svc.hub.Run(hubCtx)

	httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub, Version)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Internal HTTP server error")
		}
	}()

	if err := waitForAPI(ctx, baseURL, probeAttempts); err != nil {
		return multierr.Combine(err, httpServer.Close(), svc.Close())
	}

	log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using internal HTTP server)")
	err = server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Combine(err, httpServer.Shutdown(shutdownCtx), svc.Close())
}
