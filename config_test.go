/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Seednode/undercover/games/undercover"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"port zero", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"no countdown", func(c *Config) { c.countdown = 0 }, true},
		{"fast countdown", func(c *Config) { c.countdownInterval = time.Millisecond }, true},
		{"fast polling", func(c *Config) { c.pollInterval = 10 * time.Millisecond }, true},
		{"blank host id", func(c *Config) { c.hostID = " " }, true},
		{"unknown store", func(c *Config) { c.store = "redis" }, true},
		{"sqlite without db", func(c *Config) { c.store = storeSQLite }, true},
		{"sqlite with db", func(c *Config) { c.store, c.db = storeSQLite, "game.db" }, false},
		{"pebble without db", func(c *Config) { c.store = storePebble }, true},
		{"pebble with db", func(c *Config) { c.store, c.db = storePebble, "game" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("UNDERCOVER_COUNTDOWN", "5")
	t.Setenv("UNDERCOVER_STORE", storePebble)

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags([]string{"--port", "9000"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	if cfg.countdown != 5 || cfg.store != storePebble {
		t.Errorf("env not applied: countdown %d store %q", cfg.countdown, cfg.store)
	}
	if cfg.port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.port)
	}
	if cfg.pollInterval != 2*time.Second {
		t.Errorf("pollInterval = %s, want the default 2s", cfg.pollInterval)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{&undercover.Error{Kind: undercover.ErrNotFound}, http.StatusNotFound},
		{&undercover.Error{Kind: undercover.ErrPrecondition}, http.StatusConflict},
		{&undercover.Error{Kind: undercover.ErrPrecondition, Err: undercover.ErrConfiguration}, http.StatusConflict},
		{&undercover.Error{Kind: undercover.ErrConfiguration}, http.StatusBadRequest},
		{&undercover.Error{Kind: undercover.ErrInvalidArgument}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", undercover.ErrNoParticipants), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRealIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.0.2.1:1234", nil, "192.0.2.1:1234"},
		{"cloudflare", "192.0.2.1:1234", map[string]string{"CF-Connecting-IP": "198.51.100.7"}, "198.51.100.7:1234"},
		{"real ip", "192.0.2.1:1234", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8:1234"},
		{"garbage header", "192.0.2.1:1234", map[string]string{"X-Real-IP": "nope"}, "192.0.2.1:1234"},
		{"ipv6", "[2001:db8::1]:80", nil, "[2001:db8::1]:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := realIP(r); got != tt.want {
				t.Errorf("realIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHumanReadableSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500000, "1.5 MB"},
	}

	for _, tt := range tests {
		if got := humanReadableSize(tt.bytes); got != tt.want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
