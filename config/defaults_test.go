package config

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: control-port-config, Property 2: Zero-value fields receive correct defaults
func TestZeroValueDefaultsApplication_Property(t *testing.T) {
	t.Setenv(CloseGraceEnv, "")
	rapid.Check(t, func(t *rapid.T) {
		client := &Client{}
		if err := client.ApplyDefaults(); err != nil {
			t.Fatalf("ApplyDefaults failed: %v", err)
		}

		if client.Host != DefaultHost || client.Port != DefaultPort {
			t.Fatalf("unexpected address %s", client.Address())
		}
		if !strings.HasPrefix(client.Name, "rvlink-") {
			t.Fatalf("expected generated name, got %q", client.Name)
		}
		if client.CloseGrace != DefaultCloseGrace {
			t.Fatalf("expected CloseGrace=%v, got %v", DefaultCloseGrace, client.CloseGrace)
		}
		if client.Backoff.Base != DefaultBackoffBase || client.Backoff.Max != DefaultBackoffMax {
			t.Fatalf("unexpected backoff %+v", client.Backoff)
		}
		if err := client.Validate(); err != nil {
			t.Fatalf("defaults should validate, got %v", err)
		}
	})
}

// Feature: control-port-config, Property 3: Non-zero fields are preserved
func TestNonZeroValuePreservation_Property(t *testing.T) {
	t.Setenv(CloseGraceEnv, "")
	nonZeroDurationGen := rapid.Custom(func(t *rapid.T) time.Duration {
		ms := rapid.Int64Range(1, 3600000).Draw(t, "durationMs")
		return time.Duration(ms) * time.Millisecond
	})

	rapid.Check(t, func(t *rapid.T) {
		original := Client{
			Host:           rapid.StringMatching(`[a-z][a-z0-9-]{0,12}`).Draw(t, "host"),
			Port:           rapid.IntRange(1, 65535).Draw(t, "port"),
			Name:           rapid.StringMatching(`[a-z][a-z0-9-]{0,20}`).Draw(t, "name"),
			ConnectTimeout: nonZeroDurationGen.Draw(t, "connectTimeout"),
			IOTimeout:      nonZeroDurationGen.Draw(t, "ioTimeout"),
			ReplyTimeout:   nonZeroDurationGen.Draw(t, "replyTimeout"),
			PollInterval:   nonZeroDurationGen.Draw(t, "pollInterval"),
			CloseGrace:     nonZeroDurationGen.Draw(t, "closeGrace"),
			Handshake:      rapid.SampledFrom([]string{HandshakeGreeting, HandshakeNone}).Draw(t, "handshake"),
			Backoff: Backoff{
				Base: nonZeroDurationGen.Draw(t, "backoffBase"),
				Max:  nonZeroDurationGen.Draw(t, "backoffMax"),
			},
		}

		applied := original
		if err := applied.ApplyDefaults(); err != nil {
			t.Fatalf("ApplyDefaults failed: %v", err)
		}
		if applied != original {
			t.Fatalf("non-zero fields changed: got %+v, want %+v", applied, original)
		}
	})
}

func TestCloseGraceEnvOverride(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"250", 250 * time.Millisecond, false},
		{"0", 0, false},
		{"", DefaultCloseGrace, false},
		{"soon", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run("value="+strconv.Quote(tt.value), func(t *testing.T) {
			t.Setenv(CloseGraceEnv, tt.value)
			client := &Client{}
			err := client.ApplyDefaults()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyDefaults failed: %v", err)
			}
			if client.CloseGrace != tt.want {
				t.Errorf("expected CloseGrace=%v, got %v", tt.want, client.CloseGrace)
			}
		})
	}
}

// A zero close_grace in the file is unset; the environment is the only way
// to turn the pause off.
func TestCloseGraceZeroInFile(t *testing.T) {
	path := writeConfig(t, "client:\n  close_grace: 0s\n")

	t.Setenv(CloseGraceEnv, "")
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Client.CloseGrace != DefaultCloseGrace {
		t.Errorf("expected CloseGrace=%v, got %v", DefaultCloseGrace, cfg.Client.CloseGrace)
	}

	t.Setenv(CloseGraceEnv, "0")
	cfg, err = Load(path, false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Client.CloseGrace != 0 {
		t.Errorf("expected CloseGrace=0, got %v", cfg.Client.CloseGrace)
	}
}

func TestGenerateClientName_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := GenerateClientName()
		if seen[name] {
			t.Fatalf("duplicate client name %q", name)
		}
		seen[name] = true
	}
}
