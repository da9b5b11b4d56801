// Command apocalypse starts the Zombie Apocalypse simulation server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, scenario directory, log level, and optional
// ngrok tunneling for easy external access during development. Every flag
// can also be set from the environment or a .env file.
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
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/apocalypse/api"
	"github.com/wricardo/mcp-training/apocalypse/game/config"
	"github.com/wricardo/mcp-training/apocalypse/game/service"
	"github.com/wricardo/mcp-training/apocalypse/game/session"
	"github.com/wricardo/mcp-training/apocalypse/transport/mcp"
	"github.com/wricardo/mcp-training/apocalypse/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Zombie Apocalypse Simulation Server"
)

const (
	sessionTTL      = 24 * time.Hour
	cleanupInterval = time.Hour
)

// serverOptions is the resolved process configuration
type serverOptions struct {
	Host         string
	Port         int
	ConfigDir    string
	LogLevel     string
	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (o serverOptions) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func main() {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("Server exited")
	}
}

// loadEnv loads a .env file if it exists
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("Error loading .env file")
		}
		return
	}
	logrus.Debug("Loaded environment variables from .env file")
}

// newCommand builds the command line: serve is the default action
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "apocalypse",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing scenario files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  stdioAction,
			},
		},
		Action: serveAction,
	}
}

// optionsFrom reads the flags of cmd or its parents
func optionsFrom(cmd *cli.Command) serverOptions {
	return serverOptions{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		ConfigDir:    cmd.String("config-dir"),
		LogLevel:     cmd.String("log-level"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

// setupLogging applies the log level; unknown levels fall back to info
func setupLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.LogLevel)

	logrus.WithFields(logrus.Fields{
		"version": Version,
		"mode":    "serve",
	}).Info("Starting " + AppName)

	simService, sessions, err := initializeServices(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	go sessionCleanupRoutine(ctx, sessions)

	return runHTTPServer(ctx, opts, simService)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	setupLogging(opts.LogLevel)

	simService, sessions, err := initializeServices(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	go sessionCleanupRoutine(ctx, sessions)

	return runStdioMCPWithInternalServer(ctx, opts, simService)
}

// initializeServices wires the session and scenario managers into the simulation service
func initializeServices(configDir string) (service.SimulationService, *session.Manager, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	return service.NewSimulationService(sessionManager, configManager), sessionManager, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(sessionTTL)
		}
	}
}

// newHandler mounts the REST API and WebSocket at the root and the MCP proxy at /mcp
func newHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer serves until ctx is cancelled. If ngrok is enabled it also
// provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts serverOptions, simService service.SimulationService) error {
	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := opts.addr()
	mcpClient := mcp.NewClient("http://" + addr)
	handler := newHandler(api.NewServer(simService, hub), mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logrus.WithFields(logrus.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Info("HTTP server listening on " + addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, handler)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logrus.Info("Shutting down...")
	case runErr = <-serveErr:
		logrus.WithError(runErr).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	logrus.Info("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, opts serverOptions, handler http.Handler) {
	if opts.NgrokAuth == "" {
		logrus.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logrus.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		logrus.WithField("domain", opts.NgrokDomain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		logrus.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logrus.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Info("Ngrok tunnel established: " + ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logrus.WithError(err).Error("Ngrok server error")
	}
	logrus.Info("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server already answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an API
// already listening on the configured address; otherwise it starts an internal
// HTTP API on a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, opts serverOptions, simService service.SimulationService) error {
	baseURL := "http://" + opts.addr()

	if externalAPIAvailable(baseURL) {
		logrus.WithField("url", baseURL).Info("External API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(simService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logrus.WithField("url", baseURL).Info("Started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	logrus.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
