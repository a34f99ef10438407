/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/rs/zerolog"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func testConfig() *Config {
	return &Config{
		bind:              "127.0.0.1",
		countdown:         3,
		countdownInterval: time.Hour,
		hostID:            "host",
		pollInterval:      2 * time.Second,
		port:              8080,
		store:             storeMemory,
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := testConfig()

	ctl, err := undercover.New(context.Background(), undercover.NewMemoryStore(),
		undercover.WithHostID(cfg.hostID),
		undercover.WithCountdown(cfg.countdown, cfg.countdownInterval),
		undercover.WithLogger(zerolog.Nop()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(ctl.Close)

	words, err := undercover.LoadWords("")
	if err != nil {
		t.Fatalf("LoadWords() error = %v", err)
	}

	errs := make(chan error, 64)

	return newRouter(cfg, ctl, words, errs)
}

// call sends a request as the participant whose cookie is id. An empty id sends no cookie.
func call(t *testing.T, h http.Handler, method, path, id string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if id != "" {
		req.AddCookie(&http.Cookie{Name: playerCookieName, Value: id})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}

	return rec, resp
}

func mustCall(t *testing.T, h http.Handler, method, path, id string, body any) response {
	t.Helper()

	rec, resp := call(t, h, method, path, id, body)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("%s %s = %d %q, want 200", method, path, rec.Code, resp.Message)
	}

	return resp
}

func cookieValue(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == playerCookieName {
			return c.Value
		}
	}
	return ""
}

func TestJoinAssignsCookie(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec, resp := call(t, h, http.MethodPost, "/api/players", "", joinRequest{Name: "Ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join = %d %q, want 200", rec.Code, resp.Message)
	}

	id := cookieValue(rec)
	if id == "" {
		t.Fatal("join did not set a player cookie")
	}

	var p undercover.Participant
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		t.Fatalf("decode participant: %v", err)
	}
	if p.ID != id || p.DisplayName != "Ada" || p.IsHost {
		t.Errorf("joined participant = %+v, want id %q named Ada", p, id)
	}

	rec, _ = call(t, h, http.MethodPost, "/api/players", "", joinRequest{Name: "Host", IsHost: true})
	if got := cookieValue(rec); got != "host" {
		t.Errorf("host cookie = %q, want %q", got, "host")
	}
}

func TestJoinRejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty name", joinRequest{Name: "  "}, http.StatusBadRequest},
		{"claims host", joinRequest{ID: "p1", Name: "Mallory", IsHost: true}, http.StatusConflict},
		{"malformed", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := call(t, h, http.MethodPost, "/api/players", "p1", tt.body)
			if rec.Code != tt.want || resp.Success {
				t.Errorf("join = %d success=%v, want %d failure", rec.Code, resp.Success, tt.want)
			}
			if resp.Message == "" {
				t.Error("failure carries no message")
			}
		})
	}
}

func TestHostOnlyRoutes(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/game/start"},
		{http.MethodPost, "/api/game/end"},
		{http.MethodPost, "/api/game/vote-round"},
		{http.MethodPost, "/api/clear"},
		{http.MethodGet, "/api/game-settings"},
		{http.MethodPost, "/api/game-status"},
		{http.MethodGet, "/api/votes"},
		{http.MethodDelete, "/api/votes"},
		{http.MethodGet, "/api/words/random"},
	}

	for _, r := range routes {
		rec, resp := call(t, h, r.method, r.path, "p1", nil)
		if rec.Code != http.StatusForbidden || resp.Success {
			t.Errorf("%s %s as player = %d, want 403", r.method, r.path, rec.Code)
		}
	}
}

func TestStartFlow(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "host", joinRequest{Name: "Host", IsHost: true})
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})
	mustCall(t, h, http.MethodPost, "/api/players", "p2", joinRequest{Name: "Grace"})

	rec, resp := call(t, h, http.MethodPost, "/api/game/start", "host", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("start without settings = %d %q, want 409", rec.Code, resp.Message)
	}

	settings := undercover.RoleConfig{CivilianCount: 2, UndercoverCount: 1, CivilianWord: "tea", UndercoverWord: "coffee"}
	rec, _ = call(t, h, http.MethodPost, "/api/game-settings", "host", settings)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("too many roles = %d, want 400", rec.Code)
	}

	settings.CivilianCount = 1
	mustCall(t, h, http.MethodPost, "/api/game-settings", "host", settings)

	resp = mustCall(t, h, http.MethodPost, "/api/game/start", "host", nil)
	var state undercover.SessionState
	if err := json.Unmarshal(resp.Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Phase != undercover.PhasePreparing || state.Countdown == nil || *state.Countdown != 3 {
		t.Errorf("state after start = %+v, want preparing with countdown 3", state)
	}

	rec, _ = call(t, h, http.MethodPost, "/api/game-settings", "host", settings)
	if rec.Code != http.StatusConflict {
		t.Errorf("settings during game = %d, want 409", rec.Code)
	}

	rec, _ = call(t, h, http.MethodPost, "/api/votes", "p1", voteRequest{TargetID: "p2"})
	if rec.Code != http.StatusConflict {
		t.Errorf("vote while preparing = %d, want 409", rec.Code)
	}

	rec, _ = call(t, h, http.MethodPost, "/api/players", "p3", joinRequest{Name: "Linus"})
	if rec.Code != http.StatusConflict {
		t.Errorf("join during game = %d, want 409", rec.Code)
	}

	resp = mustCall(t, h, http.MethodPost, "/api/game/end", "host", nil)
	if err := json.Unmarshal(resp.Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Phase != undercover.PhaseWaiting {
		t.Errorf("phase after end = %q, want %q", state.Phase, undercover.PhaseWaiting)
	}
}

func TestStateIsPerViewer(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "host", joinRequest{Name: "Host", IsHost: true})
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})
	mustCall(t, h, http.MethodPost, "/api/players", "p2", joinRequest{Name: "Grace"})
	mustCall(t, h, http.MethodPost, "/api/game-settings", "host", undercover.RoleConfig{
		CivilianCount: 1, UndercoverCount: 1, CivilianWord: "tea", UndercoverWord: "coffee",
	})
	mustCall(t, h, http.MethodPost, "/api/game/assign-roles", "host", undercover.RoleConfig{
		CivilianCount: 1, UndercoverCount: 1, CivilianWord: "tea", UndercoverWord: "coffee",
	})

	var host, player stateResponse
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/state", "host", nil).Data, &host); err != nil {
		t.Fatalf("decode host state: %v", err)
	}
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/state", "p1", nil).Data, &player); err != nil {
		t.Fatalf("decode player state: %v", err)
	}

	if host.Settings == nil {
		t.Error("host state has no settings")
	}
	if player.Settings != nil {
		t.Error("player state leaks settings")
	}
	if player.PollInterval != 2000 || player.ViewerID != "p1" || player.HostID != "host" {
		t.Errorf("player state = poll %d viewer %q host %q", player.PollInterval, player.ViewerID, player.HostID)
	}
	if player.Me == nil || player.Me.SecretRole == undercover.RoleNone || player.Word == "" {
		t.Fatalf("player does not see their own role and word: %+v", player.Me)
	}

	for _, p := range player.Players {
		if p.ID != "p1" && p.SecretRole != undercover.RoleNone {
			t.Errorf("player sees role of %s: %q", p.ID, p.SecretRole)
		}
	}
	for _, p := range host.Players {
		if !p.IsHost && p.SecretRole == undercover.RoleNone {
			t.Errorf("host cannot see role of %s", p.ID)
		}
	}

	var players []undercover.Participant
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/players", "p2", nil).Data, &players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	for _, p := range players {
		if p.ID != "p2" && p.SecretRole != undercover.RoleNone {
			t.Errorf("/api/players leaks role of %s", p.ID)
		}
	}
}

func TestLeave(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})
	mustCall(t, h, http.MethodPost, "/api/players", "p2", joinRequest{Name: "Grace"})

	if rec, _ := call(t, h, http.MethodDelete, "/api/players/p2", "p1", nil); rec.Code != http.StatusForbidden {
		t.Errorf("removing someone else = %d, want 403", rec.Code)
	}
	mustCall(t, h, http.MethodDelete, "/api/players/p1", "p1", nil)
	mustCall(t, h, http.MethodDelete, "/api/players/p2", "host", nil)

	if rec, _ := call(t, h, http.MethodDelete, "/api/players/p2", "host", nil); rec.Code != http.StatusNotFound {
		t.Errorf("removing unknown = %d, want 404", rec.Code)
	}
	if rec, _ := call(t, h, http.MethodDelete, "/api/players/host", "host", nil); rec.Code != http.StatusConflict {
		t.Errorf("removing host = %d, want 409", rec.Code)
	}
}

func TestVoteAsSomeoneElse(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})

	rec, resp := call(t, h, http.MethodPost, "/api/votes", "p1", voteRequest{VoterID: "p2", TargetID: "p1"})
	if rec.Code != http.StatusBadRequest || resp.Message != "you can only vote as yourself" {
		t.Errorf("vote as other = %d %q, want 400", rec.Code, resp.Message)
	}
}

func TestRandomWords(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	var pair undercover.WordPair
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/words/random", "host", nil).Data, &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	if pair.Civilian == "" || pair.Undercover == "" || pair.Civilian == pair.Undercover {
		t.Errorf("random pair = %+v", pair)
	}
}

func TestStaticRoutes(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	tests := []struct {
		path        string
		code        int
		contentType string
	}{
		{"/", http.StatusFound, ""},
		{"/undercover", http.StatusOK, "text/html; charset=utf-8"},
		{"/undercover/qr", http.StatusOK, "image/png"},
		{"/assets/undercover/app.js", http.StatusOK, "text/javascript; charset=utf-8"},
		{"/assets/undercover/app.css", http.StatusOK, "text/css; charset=utf-8"},
		{"/assets/undercover/missing.js", http.StatusNotFound, ""},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml"},
		{"/healthz", http.StatusOK, "text/plain; charset=utf-8"},
		{"/robots.txt", http.StatusOK, "text/plain; charset=utf-8"},
		{"/version", http.StatusOK, "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.code {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.code)
			}
			if tt.contentType != "" && rec.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("GET %s Content-Type = %q, want %q", tt.path, rec.Header().Get("Content-Type"), tt.contentType)
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Errorf("GET %s is missing security headers", tt.path)
			}
		})
	}
}

func TestGamePageSetsCookie(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/undercover", nil))
	if cookieValue(rec) == "" {
		t.Error("game page did not set a player cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/undercover", nil)
	req.AddCookie(&http.Cookie{Name: playerCookieName, Value: "p1"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := cookieValue(rec); got != "" {
		t.Errorf("game page replaced existing cookie with %q", got)
	}
}

func TestJoinKeepsCookieIdentity(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)
	mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{Name: "Ada"})
	mustCall(t, h, http.MethodPost, "/api/players", "p2", joinRequest{Name: "Grace"})

	rec, resp := call(t, h, http.MethodPost, "/api/players", "p1", joinRequest{ID: "p2", Name: "Mallory"})
	if rec.Code != http.StatusBadRequest || resp.Message != "you can only join as yourself" {
		t.Errorf("join under another id = %d %q, want 400", rec.Code, resp.Message)
	}
	if got := cookieValue(rec); got == "p2" {
		t.Error("cookie switched to another participant")
	}

	rec, _ = call(t, h, http.MethodPost, "/api/players", "", joinRequest{ID: "p2", Name: "Mallory"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cookieless join under an existing id = %d, want 400", rec.Code)
	}

	var players []undercover.Participant
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/players", "host", nil).Data, &players); err != nil {
		t.Fatalf("decode players: %v", err)
	}
	for _, p := range players {
		if p.ID == "p2" && p.DisplayName != "Grace" {
			t.Errorf("p2 renamed to %q by another client", p.DisplayName)
		}
	}

	resp = mustCall(t, h, http.MethodPost, "/api/players", "p1", joinRequest{ID: "p1", Name: "Ada L."})
	var p undercover.Participant
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		t.Fatalf("decode participant: %v", err)
	}
	if p.ID != "p1" || p.DisplayName != "Ada L." {
		t.Errorf("rename = %+v, want p1 named Ada L.", p)
	}
}

func TestSetGameStatusRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	rec, resp := call(t, h, http.MethodPost, "/api/game-status", "host", map[string]any{"countdown": 1})
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("countdown patch = %d %q, want 400", rec.Code, resp.Message)
	}
	if !strings.Contains(resp.Message, "countdown") {
		t.Errorf("message = %q, want it to name the field", resp.Message)
	}

	var state undercover.SessionState
	if err := json.Unmarshal(mustCall(t, h, http.MethodGet, "/api/game-status", "", nil).Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Phase != undercover.PhaseWaiting || state.Version != 0 {
		t.Errorf("state changed by rejected patch: %+v", state)
	}
}
