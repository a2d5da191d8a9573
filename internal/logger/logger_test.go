package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("packed weights", "bytes", 4096)

	out := buf.String()
	for _, want := range []string{"packed weights", `"bytes":4096`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output: %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelWarn)

	log.Debug("dropped")
	log.Info("dropped")
	if buf.Len() > 0 {
		t.Fatalf("output below the handler level: %s", buf.String())
	}

	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %s", buf.String())
	}
}

func TestPrettyLine(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug)
	log.Info("bench done", "shape", "64x64x64", "gops", 1.5)

	out := buf.String()
	for _, want := range []string{"INFO", "bench done", "shape=64x64x64", "gops=1.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in line: %s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("line not newline-terminated: %q", out)
	}
}

func TestPrettyQuotesSpacedStrings(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("open", "path", "packed weights.qwp", "mode", "ro")

	out := buf.String()
	if !strings.Contains(out, `path="packed weights.qwp"`) {
		t.Fatalf("spaced value not quoted: %s", out)
	}
	if !strings.Contains(out, "mode=ro") || strings.Contains(out, `mode="ro"`) {
		t.Fatalf("plain value should stay unquoted: %s", out)
	}
}

func TestPrettyGroupsFlattenToDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("config", slog.Group("blocking", slog.Int("inner", 256), slog.Int("outer", 1024)))

	out := buf.String()
	if !strings.Contains(out, "blocking.inner=256") || !strings.Contains(out, "blocking.outer=1024") {
		t.Fatalf("group keys not flattened: %s", out)
	}
}

func TestPrettyHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelInfo)

	l := slog.New(h.WithAttrs([]slog.Attr{slog.String("cmd", "serve")}).WithGroup("req"))
	l.Info("handled", "path", "/v1/bench")

	out := buf.String()
	if !strings.Contains(out, "cmd=serve") {
		t.Fatalf("handler attr missing: %s", out)
	}
	if !strings.Contains(out, "req.path=/v1/bench") {
		t.Fatalf("group prefix missing: %s", out)
	}

	// The derived handlers must not leak state back into the root.
	buf.Reset()
	slog.New(h).Info("bare")
	if strings.Contains(buf.String(), "cmd=serve") {
		t.Fatalf("root handler mutated: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("context logger not used: %s", buf.String())
	}

	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}
}
