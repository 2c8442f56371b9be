package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort: got %d, want 8080", cfg.ServerPort)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins: got %v, want two localhost defaults", cfg.CORSAllowedOrigins)
	}
	if len(cfg.ReservedUsernames) == 0 {
		t.Error("ReservedUsernames default is empty")
	}
	if _, ok := cfg.Plans["team"]; !ok {
		t.Error("Plans missing team preset")
	}
}

func TestLoadCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.mailseat.io, https://ops.mailseat.io")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"https://admin.mailseat.io", "https://ops.mailseat.io"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins: got %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Errorf("origin %d: got %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadReservedUsernamesFromEnv(t *testing.T) {
	t.Setenv("RESERVED_USERNAMES", "postmaster,mailer-daemon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.ReservedUsernames) != 2 || cfg.ReservedUsernames[1] != "mailer-daemon" {
		t.Errorf("ReservedUsernames: got %v, want [postmaster mailer-daemon]", cfg.ReservedUsernames)
	}
}
