package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Run("missing", func(t *testing.T) {
		env, err := LoadDotEnv(filepath.Join(dir, "nope"))
		if err != nil || len(env) != 0 {
			t.Fatalf("got %v, %v", env, err)
		}
	})
	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.env")
		content := "# comment\nHTTP=:9090\nBASE_URL = \"http://x.test\\n\"\nnoequals\n\nLOG_LEVEL=debug\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		env, err := LoadDotEnv(path)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]string{"HTTP": ":9090", "BASE_URL": "http://x.test\n", "LOG_LEVEL": "debug"}
		if len(env) != len(want) {
			t.Fatalf("env = %v", env)
		}
		for k, v := range want {
			if env[k] != v {
				t.Errorf("%s = %q, want %q", k, env[k], v)
			}
		}
	})
	t.Run("invalid", func(t *testing.T) {
		for name, content := range map[string]string{
			"single quotes": "A='x'\n",
			"bad quoting":   "A=\"x\n",
		} {
			path := filepath.Join(dir, "bad.env")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadDotEnv(path); err == nil {
				t.Errorf("%s: expected error", name)
			}
		}
	})
}

func TestSetLevel(t *testing.T) {
	var l slog.LevelVar
	for s, want := range map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		if err := SetLevel(&l, s); err != nil {
			t.Fatal(err)
		}
		if l.Level() != want {
			t.Errorf("SetLevel(%q) = %v", s, l.Level())
		}
	}
	if err := SetLevel(&l, "verbose"); err == nil {
		t.Error("expected error")
	}
}

func TestIsEmpty(t *testing.T) {
	empty := []any{"", false, int64(0), uint64(0), 0.0, time.Time{}, time.Duration(0), nil}
	for _, v := range empty {
		if !isEmpty(v) {
			t.Errorf("isEmpty(%#v) = false", v)
		}
	}
	for _, v := range []any{"x", true, int64(1), time.Second} {
		if isEmpty(v) {
			t.Errorf("isEmpty(%#v) = true", v)
		}
	}
}
