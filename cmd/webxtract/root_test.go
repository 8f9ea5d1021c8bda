package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "webxtract" {
			t.Errorf("expected use 'webxtract', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
	})

	t.Run("has log-json flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("log-json") == nil {
			t.Fatal("expected log-json flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"crawl": false, "history": false, "export": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})
}

// TestGetVerboseFlag tests reading the persistent verbose flag.
func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("defaults to false", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		crawl, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if getVerboseFlag(crawl) {
			t.Error("expected verbose to be false")
		}
	})

	t.Run("reads value from root", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}
		crawl, _, err := root.Find([]string{"crawl"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !getVerboseFlag(crawl) {
			t.Error("expected verbose to be true")
		}
	})
}

// TestSetupLogger tests logger creation from command flags.
func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetErr(&buf)
	if err := root.PersistentFlags().Set("log-json", "true"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logger := setupLogger(root)
	logger.Warn("hello", "password", "hunter2")

	out := buf.String()
	if !strings.HasPrefix(out, "{") {
		t.Errorf("expected JSON log line, got %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("expected secret to be redacted, got %q", out)
	}
}
