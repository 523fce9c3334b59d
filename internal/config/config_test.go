package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s request timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.StorageTTL != time.Hour {
		t.Fatalf("expected 1h storage ttl, got %s", cfg.StorageTTL)
	}
	if cfg.StorageCleanupInterval != 12*time.Hour {
		t.Fatalf("expected 12h cleanup interval, got %s", cfg.StorageCleanupInterval)
	}
	if cfg.Output != OutputJSON {
		t.Fatalf("expected json output, got %q", cfg.Output)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("KUBE_CONTEXT", "from-env")
	t.Setenv("MASTER_URL", "https://env.local")

	cfg, err := Load(newFlags(t, "--context=from-flag", "-o", "YAML", "--request-timeout=5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.KubeContext != "from-flag" {
		t.Fatalf("expected flag to win, got %q", cfg.KubeContext)
	}
	if cfg.MasterURL != "https://env.local" {
		t.Fatalf("expected env value for unset flag, got %q", cfg.MasterURL)
	}
	if cfg.Output != OutputYAML {
		t.Fatalf("expected yaml output, got %q", cfg.Output)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("expected 5s request timeout, got %s", cfg.RequestTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORAGE_TTL_SECONDS":              "0",
		"STORAGE_CLEANUP_INTERVAL_SECONDS": "-1",
		"REQUEST_TIMEOUT_SECONDS":          "0",
		"OUTPUT":                           "xml",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error for %s=%s", env, val)
			}
		})
	}
}
