package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"cepstra/internal/testsupport"
)

func TestCommandContextLoggerOpensFileOnce(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	logPath := filepath.Join(testsupport.BaseDir(cfg), "logs", "cepstra.log")
	cfg.Logging.File = logPath
	configPath := testsupport.WriteConfig(t, cfg)

	ctx := newCommandContext(&globalFlags{config: configPath})
	var first, second bytes.Buffer
	a, err := ctx.logger(&first)
	if err != nil {
		t.Fatalf("first logger: %v", err)
	}
	b, err := ctx.logger(&second)
	if err != nil {
		t.Fatalf("second logger: %v", err)
	}
	if a != b {
		t.Fatal("expected the same logger on repeated calls")
	}
	b.Info("hello")
	if second.Len() != 0 {
		t.Fatalf("second writer should be ignored, got %q", second.String())
	}
	if err := ctx.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello")) {
		t.Fatalf("log file missing record: %q", data)
	}
}
