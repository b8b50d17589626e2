package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/waterfight/api"
	"github.com/wricardo/mcp-training/waterfight/game/engine"
	"github.com/wricardo/mcp-training/waterfight/transport/mcp"
)

const testPreset = `{"name": "Duel", "description": "One fort", "opponents": 1}`

func testOptions(t *testing.T) options {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "duel.json"), []byte(testPreset), 0o644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return options{Host: "127.0.0.1", Port: 0, ConfigDir: dir, IDStyle: "seq", LogLevel: "info"}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	expectedAppName := "Water Fight Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestNewCommand(t *testing.T) {
	cmd := newCommand()

	if cmd.Action == nil {
		t.Error("Expected root command to default to the server action")
	}

	aliases := map[string][]string{}
	for _, sub := range cmd.Commands {
		aliases[sub.Name] = sub.Aliases
	}

	if _, ok := aliases["server"]; !ok {
		t.Error("Expected server subcommand")
	}
	stdio, ok := aliases["stdio-mcp"]
	if !ok {
		t.Fatal("Expected stdio-mcp subcommand")
	}
	if strings.Join(stdio, ",") != "mcp-stdio,mcp" {
		t.Errorf("Expected aliases mcp-stdio,mcp, got %v", stdio)
	}

	for _, name := range []string{"host", "port", "config-dir", "results-db", "id-style", "log-level", "ngrok"} {
		found := false
		for _, f := range cmd.Flags {
			for _, n := range f.Names() {
				if n == name {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("Expected flag --%s", name)
		}
	}
}

func TestOptionsAddr(t *testing.T) {
	opts := options{Host: "localhost", Port: 9090}
	if opts.addr() != "localhost:9090" {
		t.Errorf("Expected localhost:9090, got %s", opts.addr())
	}
}

func TestSetupLogging(t *testing.T) {
	original := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(original)

	if err := setupLogging("debug", false); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", zerolog.GlobalLevel())
	}

	if err := setupLogging("shouty", false); err == nil {
		t.Error("Expected error for unknown log level")
	}
}

func TestInitializeServices(t *testing.T) {
	t.Run("memory archive", func(t *testing.T) {
		svc, err := initializeServices(testOptions(t))
		if err != nil {
			t.Fatalf("Failed to initialize services: %v", err)
		}
		defer svc.Close()

		game, err := svc.game.CreateGame(context.Background(), "duel")
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if game.GameNumber != "0" {
			t.Errorf("Expected first game number 0, got %s", game.GameNumber)
		}
		if svc.sessions.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", svc.sessions.Count())
		}
	})

	t.Run("sqlite archive", func(t *testing.T) {
		opts := testOptions(t)
		opts.ResultsDB = filepath.Join(t.TempDir(), "results.db")

		svc, err := initializeServices(opts)
		if err != nil {
			t.Skipf("SQLite unavailable: %v", err)
		}
		if err := svc.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	t.Run("missing config dir", func(t *testing.T) {
		opts := testOptions(t)
		opts.ConfigDir = "/non/existent/path"
		if _, err := initializeServices(opts); err == nil {
			t.Error("Expected error for non-existent config directory")
		}
	})
}

// newTestStack serves the root handler with the MCP client pointed back at itself
func newTestStack(t *testing.T) *httptest.Server {
	t.Helper()
	svc, err := initializeServices(testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go svc.hub.Run(ctx)

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	handler = newRootHandler(api.NewServer(svc.game, svc.hub, Version), mcp.NewClient(srv.URL))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		svc.Close()
	})
	return srv
}

func postMCP(t *testing.T, url, payload string) string {
	t.Helper()
	resp, err := http.Post(url+"/mcp", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestRootHandler(t *testing.T) {
	srv := newTestStack(t)

	t.Run("api is mounted", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/about")
		if err != nil {
			t.Fatalf("GET /api/about failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/mcp")
		if err != nil {
			t.Fatalf("GET /mcp failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", resp.StatusCode)
		}
	})

	t.Run("mcp lists tools", func(t *testing.T) {
		body := postMCP(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		for _, tool := range []string{"create_game", "fire_shot", "board", "scoreboard"} {
			if !strings.Contains(body, tool) {
				t.Errorf("Expected tool %s in response, got: %s", tool, body)
			}
		}
	})

	t.Run("mcp tool call reaches the API", func(t *testing.T) {
		body := postMCP(t, srv.URL, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_game","arguments":{"config_id":"duel"}}}`)
		if !strings.Contains(body, "Created game: 0") {
			t.Errorf("Expected created game in response, got: %s", body)
		}
	})
}

func TestWaitForAPI(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/about" {
				t.Errorf("Expected probe of /api/about, got %s", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		if err := waitForAPI(context.Background(), srv.URL, 3); err != nil {
			t.Errorf("Expected API ready, got %v", err)
		}
	})

	t.Run("server errors are not ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		if err := waitForAPI(context.Background(), srv.URL, 2); err == nil {
			t.Error("Expected error when API keeps failing")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := waitForAPI(ctx, "http://127.0.0.1:1", 5); err == nil {
			t.Error("Expected error for cancelled context")
		}
	})
}

func TestCleanupRoutine(t *testing.T) {
	svc, err := initializeServices(testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	if _, err := svc.sessions.Create("duel", &engine.GameConfig{Name: "Duel", Description: "One fort", Opponents: 1}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupRoutine(ctx, svc.sessions, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.sessions.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if svc.sessions.Count() != 0 {
		t.Errorf("Expected expired game removed, got %d", svc.sessions.Count())
	}
}
