package main

import (
	"context"
	"errors"
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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unqworkflow/unqflow/internal/api"
	"github.com/unqworkflow/unqflow/internal/config"
	"github.com/unqworkflow/unqflow/internal/history"
	"github.com/unqworkflow/unqflow/internal/probe"
	"github.com/unqworkflow/unqflow/internal/state"
	"github.com/unqworkflow/unqflow/internal/tracker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the unqflow server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running unqflow server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show unqflow system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "unqflow.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "unqflow version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists before anything binds to the port.
	apiToken, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("unqflow is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("unqflow is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// App state: a persisted preferences snapshot plus demo content for the
	// collections that start empty each session.
	persister := state.NewFilePersister(filepath.Join(cfg.Storage.DataDir, "state.json"))
	store := state.New(persister)
	state.Seed(store)

	// Probe the configured AI Engine once at startup so the dashboard
	// reflects connectivity immediately.
	checker := probe.NewChecker(store)
	if cfg.Engine.BaseURL != "" {
		if checker.Check(ctx, cfg.Engine.BaseURL) {
			slog.Info("AI Engine reachable", "url", cfg.Engine.BaseURL)
		} else {
			slog.Warn("AI Engine not reachable at startup", "url", cfg.Engine.BaseURL)
		}
	}

	// Open the generation history archive.
	archive, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening history archive: %w", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing history archive: %v\n", err)
		}
	}()

	tickInterval, err := time.ParseDuration(cfg.Tracker.TickInterval)
	if err != nil {
		slog.Warn("invalid tracker tick interval, using default 2s", "value", cfg.Tracker.TickInterval, "error", err)
		tickInterval = 2 * time.Second
	}
	trk := tracker.New(store, archive, tickInterval, cfg.Tracker.MaxStep)

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Store:   store,
		Tracker: trk,
		Probe:   checker,
		History: archive,
		Token:   apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Tracker: trk,
		Probe:   checker,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Run the HTTP server and the generation tracker together; a failure
	// in either tears the whole process down.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "unqflow listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		trk.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("unqflow is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop unqflow (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to unqflow (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the AI Engine directly.
	if cfg.Engine.BaseURL == "" {
		printStatus("AI Engine", "not configured")
	} else if engResp, err := client.Get(strings.TrimRight(cfg.Engine.BaseURL, "/") + "/api/health"); err != nil {
		printStatus("AI Engine", "not reachable at %s", cfg.Engine.BaseURL)
	} else {
		engResp.Body.Close()
		printStatus("AI Engine", "running at %s", cfg.Engine.BaseURL)
	}

	// Show generation counts if server is running.
	if resp != nil && resp.StatusCode == 200 {
		if client, err := newAPIClient(); err == nil {
			genResp, err := client.get(context.Background(), "/generations")
			if err == nil {
				var gens []struct {
					Status string `json:"status"`
				}
				if decodeJSON(genResp, &gens) == nil {
					active := 0
					for _, g := range gens {
						if g.Status == "generating" || g.Status == "processing" || g.Status == "queued" {
							active++
						}
					}
					printStatus("Generations", "%d tracked (%d active)", len(gens), active)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
