package app

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRunner() (*Runner, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return NewRunnerWithWriters(stdout, stderr, slog.New(slog.DiscardHandler)), stdout, stderr
}

func TestVersionCommand(t *testing.T) {
	r, stdout, _ := newTestRunner()
	if code := r.Run([]string{"version"}); code != 0 {
		t.Fatalf("version exited %d", code)
	}
	if !strings.Contains(stdout.String(), "commit:") {
		t.Fatalf("unexpected version output: %s", stdout.String())
	}
}

func TestUnknownCommandFails(t *testing.T) {
	r, _, stderr := newTestRunner()
	if code := r.Run([]string{"teleport"}); code == 0 {
		t.Fatal("unknown command should fail")
	}
	if stderr.Len() == 0 {
		t.Fatal("expected an error message on stderr")
	}
}

func TestRunRejectsMissingToken(t *testing.T) {
	t.Setenv("WALLETBOT_TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	r, _, stderr := newTestRunner()

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if code := r.Run([]string{"run", "--config", missing}); code == 0 {
		t.Fatal("run without a bot token should fail")
	}
	if !strings.Contains(stderr.String(), "token") {
		t.Fatalf("expected token error, got: %s", stderr.String())
	}
}
