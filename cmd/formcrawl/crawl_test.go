package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/formcrawl/internal/config"
	"github.com/nao1215/formcrawl/internal/crawler"
	"github.com/nao1215/formcrawl/internal/database"
)

// newTestSite serves a home page linking to a login page with a form.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body><a href="/login">Log in</a><a href="/about#team">About</a></body></html>`)
		case "/login":
			fmt.Fprint(w, `<form action="/session" method="post">
				<input name="user" value="alice">
				<input type="password" name="password" value="hunter2">
				<input type="hidden" name="csrf_token" value="s3cret">
				<textarea name="note"></textarea>
			</form>`)
		case "/about":
			fmt.Fprint(w, `<p>about</p>`)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// emptyConfigFile returns a config file path so tests never pick up a
// .formcrawl from the working or home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	if cmd.Name() != "crawl" {
		t.Errorf("expected name 'crawl', got %q", cmd.Name())
	}
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected at least one argument to be required")
	}

	flags := []struct {
		name, shorthand, def string
	}{
		{"depth", "d", "2"},
		{"same-domain", "", "true"},
		{"timeout", "t", config.DefaultTimeout.String()},
		{"concurrency", "n", "8"},
		{"batch", "b", "1"},
		{"proxy", "x", ""},
		{"project", "p", ""},
		{"config", "c", ""},
		{"db-driver", "", "sqlite"},
		{"db-dsn", "", ""},
		{"db-dir", "", ""},
	}
	for _, f := range flags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("expected %s flag", f.name)
			continue
		}
		if flag.Shorthand != f.shorthand {
			t.Errorf("%s: expected shorthand %q, got %q", f.name, f.shorthand, flag.Shorthand)
		}
		if flag.DefValue != f.def {
			t.Errorf("%s: expected default %q, got %q", f.name, f.def, flag.DefValue)
		}
	}
}

func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"-d", "0", "--same-domain=false", "-t", "5s", "-n", "3", "-b", "2",
			"-p", "audit", "-c", emptyConfigFile(t),
		}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildCrawlConfig(cmd, []string{"a.test"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxDepth != 0 || cfg.SameDomainOnly || cfg.Timeout != 5*time.Second ||
			cfg.Concurrency != 3 || cfg.BatchSize != 2 || cfg.ProjectName != "audit" {
			t.Errorf("unexpected config %+v", cfg)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "a.test" {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
	})

	t.Run("database flags win over the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "database:\n  driver: postgres\n  dsn: postgres://file/db\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "--db-dsn", "postgres://flag/db"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, []string{"a.test"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DBDriver != "postgres" {
			t.Errorf("expected driver from file, got %q", cfg.DBDriver)
		}
		if cfg.DBDSN != "postgres://flag/db" {
			t.Errorf("expected DSN from flag, got %q", cfg.DBDSN)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildCrawlConfig(cmd, []string{"a.test"}); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	t.Run("crawls and stores a site", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		dbDir := t.TempDir()

		out, err := execute(t, "crawl", server.URL, "--db-dir", dbDir, "-c", emptyConfigFile(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			"[CRAWL] depth=0 " + server.URL + "/",
			"[CRAWL] depth=1 " + server.URL + "/login",
			"[CRAWL] depth=1 " + server.URL + "/about",
			"[DONE] Crawled 3 pages.",
			"3 pages, 1 forms, 0 errors (project #1)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Contains(out, "#team") {
			t.Error("expected fragments to be removed")
		}

		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		forms, err := db.ListForms(context.Background(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(forms) != 1 || forms[0].Method != "POST" || forms[0].Action != server.URL+"/session" {
			t.Fatalf("unexpected forms %+v", forms)
		}
		if len(forms[0].Inputs) != 4 {
			t.Errorf("expected 4 inputs, got %d", len(forms[0].Inputs))
		}
	})

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		out, err := execute(t, "crawl", server.URL, "-d", "0", "--db-dir", t.TempDir(), "-c", emptyConfigFile(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "[DONE] Crawled 1 pages.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("site settings from the config file", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		host := strings.TrimPrefix(server.URL, "http://")
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := fmt.Sprintf("sites:\n  %s:\n    depth: 0\n", host)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		out, err := execute(t, "crawl", server.URL, "--db-dir", t.TempDir(), "-c", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "[DONE] Crawled 1 pages.") {
			t.Errorf("expected site depth to apply, got:\n%s", out)
		}
	})

	t.Run("batch of targets", func(t *testing.T) {
		t.Parallel()

		first := newTestSite(t)
		second := newTestSite(t)

		out, err := execute(t, "crawl", first.URL, second.URL, "-b", "2", "--db-dir", t.TempDir(), "-c", emptyConfigFile(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Starting batch crawl of 2 targets (concurrency: 2)",
			"[1/2] " + first.URL + ": done",
			"[2/2] " + second.URL + ": done",
			"Batch crawl completed",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("batch reports failed targets", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		out, err := execute(t, "crawl", server.URL, "http://", "--db-dir", t.TempDir(), "-c", emptyConfigFile(t))
		if err == nil || !strings.Contains(err.Error(), "1 of 2 targets failed") {
			t.Errorf("expected failure summary, got %v", err)
		}
		if !strings.Contains(out, server.URL+": done") {
			t.Errorf("expected valid target to be crawled, got:\n%s", out)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"negative depth", []string{"-d", "-1"}, config.ErrInvalidDepth},
			{"zero concurrency", []string{"-n", "0"}, config.ErrInvalidConcurrency},
			{"postgres without dsn", []string{"--db-driver", "postgres"}, config.ErrMissingDSN},
			{"unknown driver", []string{"--db-driver", "mysql"}, config.ErrUnsupportedDriver},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				args := append([]string{"crawl", "a.test", "--db-dir", t.TempDir(), "-c", emptyConfigFile(t)}, tt.args...)
				if _, err := execute(t, args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("invalid single target", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "crawl", "http://", "--db-dir", t.TempDir(), "-c", emptyConfigFile(t))
		if !errors.Is(err, crawler.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})
}

func TestWatchSignals(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleanup := watchSignals(ctx, logger, func() {}, cancel)
	cleanup()
	cleanup()
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"http://a.test/":        "a.test",
		"https://a.test:8443/x": "a.test:8443",
		"::bad":                 "",
	}
	for in, want := range tests {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
