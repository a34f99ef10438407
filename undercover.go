/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Who Is Undercover
//
// Every player but the host is dealt a secret word. Most share one word, the undercover
// players get a similar but different one, and blank players get nothing. Players take
// turns describing their word without saying it, then vote on who they think is
// undercover. The host runs the game from the same page and sees every role.
//
// Clients never hold a connection open; they poll /api/state on a fixed interval and
// the server resolves a round as soon as any poll or vote finds it complete.

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	playerCookieName = "undercover_id"
	maxBodySize      = 64 << 10
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type joinRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type voteRequest struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
	Round    uint64 `json:"round"`
}

type stateResponse struct {
	undercover.Snapshot
	HostID       string `json:"hostId"`
	ViewerID     string `json:"viewerId"`
	PollInterval int64  `json:"pollIntervalMs"`
}

type resultResponse struct {
	undercover.TallyReport
	Resolution *undercover.Resolution `json:"resolution,omitempty"`
}

var errNotHost = errors.New("only the host can do that")

func writeJSON(cfg *Config, w http.ResponseWriter, status int, body envelope, errs chan<- error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		errs <- err
	}
}

func writeData(cfg *Config, w http.ResponseWriter, data any, errs chan<- error) {
	writeJSON(cfg, w, http.StatusOK, envelope{Success: true, Data: data}, errs)
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error, errs chan<- error) {
	status := statusFor(err)
	msg := undercover.Message(err)

	switch {
	case errors.Is(err, errNotHost):
		status = http.StatusForbidden
	case status == http.StatusInternalServerError:
		logf(cfg, "ERROR: %s %s from %s: %v", r.Method, r.URL.Path, realIP(r), err)
		msg = "An error has occurred. Please try again."
	}

	writeJSON(cfg, w, status, envelope{Success: false, Message: msg}, errs)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, false)
}

// decodeStrict is decode for routes where an unknown field would otherwise be ignored silently.
func decodeStrict(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if strict {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	return &undercover.Error{
		Op:   "decode request",
		Kind: undercover.ErrInvalidArgument,
		Msg:  "malformed request body: " + strings.TrimPrefix(err.Error(), "json: "),
	}
}

func playerID(r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

func setPlayerID(cfg *Config, w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     cfg.prefix + "/",
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if id := playerID(r); id != "" {
		return id
	}

	id := uuid.NewString()
	setPlayerID(cfg, w, id)

	return id
}

// hostOnly wraps h so that only the holder of the host id may call it.
func hostOnly(cfg *Config, ctl *undercover.Controller, errs chan<- error, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if playerID(r) != ctl.HostID() {
			writeError(cfg, w, r, errNotHost, errs)
			return
		}
		h(w, r, p)
	}
}

func serveState(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		viewer := getOrSetPlayerID(cfg, w, r)

		snap, err := ctl.View(r.Context(), viewer)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, stateResponse{
			Snapshot:     snap,
			HostID:       ctl.HostID(),
			ViewerID:     viewer,
			PollInterval: cfg.pollInterval.Milliseconds(),
		}, errs)
	}
}

func servePlayers(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		snap, err := ctl.View(r.Context(), playerID(r))
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, snap.Players, errs)
	}
}

func serveJoin(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req joinRequest
		if err := decode(w, r, &req); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		// Players join under their cookie id; only the host id can be claimed by name.
		id := strings.TrimSpace(req.ID)
		if req.IsHost {
			if id == "" {
				id = ctl.HostID()
			}
		} else {
			viewer := getOrSetPlayerID(cfg, w, r)
			if id != "" && id != viewer {
				writeError(cfg, w, r, &undercover.Error{Op: "join", Kind: undercover.ErrInvalidArgument, Msg: "you can only join as yourself"}, errs)
				return
			}
			id = viewer
		}

		p, err := ctl.UpsertParticipant(r.Context(), id, req.Name, req.IsHost)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		setPlayerID(cfg, w, p.ID)

		logf(cfg, "GAME: %q joined as %s from %s", p.DisplayName, p.ID, realIP(r))

		writeData(cfg, w, p, errs)
	}
}

func serveLeave(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id := p.ByName("id")

		if viewer := playerID(r); viewer != id && viewer != ctl.HostID() {
			writeError(cfg, w, r, errNotHost, errs)
			return
		}

		if err := ctl.RemoveParticipant(r.Context(), id); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, nil, errs)
	}
}

func serveGameStatus(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeData(cfg, w, ctl.SessionState(), errs)
	}
}

func serveSetGameStatus(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var patch undercover.SessionPatch
		if err := decodeStrict(w, r, &patch); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		state, err := ctl.SetSessionState(r.Context(), patch)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, state, errs)
	}
}

func serveSettings(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		settings, ok := ctl.RoleConfig()
		if !ok {
			writeData(cfg, w, nil, errs)
			return
		}

		writeData(cfg, w, settings, errs)
	}
}

func serveSetSettings(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var settings undercover.RoleConfig
		if err := decode(w, r, &settings); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		saved, err := ctl.SetRoleConfig(r.Context(), settings)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, saved, errs)
	}
}

func serveClearSettings(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := ctl.ClearRoleConfig(r.Context()); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, nil, errs)
	}
}

func serveAssignRoles(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var settings undercover.RoleConfig
		if err := decode(w, r, &settings); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		assignments, err := ctl.AssignRoles(r.Context(), settings)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, assignments, errs)
	}
}

// serveAction adapts a controller call that returns only an error.
func serveAction(cfg *Config, ctl *undercover.Controller, errs chan<- error, action func(*undercover.Controller, *http.Request) error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := action(ctl, r); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, ctl.SessionState(), errs)
	}
}

func serveToggleVoteRound(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		state, err := ctl.ToggleVoteRound(r.Context())
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, state, errs)
	}
}

func serveVote(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req voteRequest
		if err := decode(w, r, &req); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		viewer := playerID(r)
		if req.VoterID == "" {
			req.VoterID = viewer
		}
		if req.VoterID != viewer {
			writeError(cfg, w, r, &undercover.Error{Op: "cast vote", Kind: undercover.ErrInvalidArgument, Msg: "you can only vote as yourself"}, errs)
			return
		}

		report, err := ctl.CastVoteInRound(r.Context(), req.Round, req.VoterID, req.TargetID)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, report, errs)
	}
}

func serveVotes(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		votes, err := ctl.Votes(r.Context())
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, votes, errs)
	}
}

func serveVoteResult(cfg *Config, ctl *undercover.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		report, res, err := ctl.ResolveRound(r.Context())
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeData(cfg, w, resultResponse{TallyReport: report, Resolution: res}, errs)
	}
}

func serveRandomWords(cfg *Config, words *undercover.Words, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeData(cfg, w, words.Random(), errs)
	}
}

func serveGamePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		data, err := assets.ReadFile("assets/undercover/index.html")
		if err != nil {
			errs <- err
			http.Error(w, "page not found", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(cfg, w, r)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Game page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveQR renders a PNG QR code pointing at the game page.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			errs <- err
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

// registerUndercoverGame sets up routes so that:
//   - $path              → HTML client
//   - $path/qr           → PNG QR code for the client URL
//   - /api/...           → JSON API polled by the client
func registerUndercoverGame(cfg *Config, path string, mux *httprouter.Router, ctl *undercover.Controller, words *undercover.Words, errs chan<- error) {
	api := cfg.prefix + "/api"
	host := func(h httprouter.Handle) httprouter.Handle {
		return hostOnly(cfg, ctl, errs, h)
	}

	mux.GET(cfg.prefix+path, serveGamePage(cfg, errs))
	mux.GET(cfg.prefix+path+"/qr", serveQR(cfg, errs))

	mux.GET(api+"/state", serveState(cfg, ctl, errs))

	mux.GET(api+"/players", servePlayers(cfg, ctl, errs))
	mux.POST(api+"/players", serveJoin(cfg, ctl, errs))
	mux.DELETE(api+"/players/:id", serveLeave(cfg, ctl, errs))

	mux.GET(api+"/game-status", serveGameStatus(cfg, ctl, errs))
	mux.POST(api+"/game-status", host(serveSetGameStatus(cfg, ctl, errs)))

	mux.GET(api+"/game-settings", host(serveSettings(cfg, ctl, errs)))
	mux.POST(api+"/game-settings", host(serveSetSettings(cfg, ctl, errs)))
	mux.DELETE(api+"/game-settings", host(serveClearSettings(cfg, ctl, errs)))

	mux.POST(api+"/game/assign-roles", host(serveAssignRoles(cfg, ctl, errs)))
	mux.DELETE(api+"/game/assign-roles", host(serveAction(cfg, ctl, errs, func(c *undercover.Controller, r *http.Request) error {
		return c.ClearAllRoles(r.Context())
	})))
	mux.POST(api+"/game/start", host(serveAction(cfg, ctl, errs, func(c *undercover.Controller, r *http.Request) error {
		return c.Start(r.Context())
	})))
	mux.POST(api+"/game/end", host(serveAction(cfg, ctl, errs, func(c *undercover.Controller, r *http.Request) error {
		return c.End(r.Context())
	})))
	mux.POST(api+"/game/vote-round", host(serveToggleVoteRound(cfg, ctl, errs)))
	mux.POST(api+"/clear", host(serveAction(cfg, ctl, errs, func(c *undercover.Controller, r *http.Request) error {
		return c.Reset(r.Context())
	})))

	mux.POST(api+"/votes", serveVote(cfg, ctl, errs))
	mux.GET(api+"/votes", host(serveVotes(cfg, ctl, errs)))
	mux.DELETE(api+"/votes", host(serveAction(cfg, ctl, errs, func(c *undercover.Controller, r *http.Request) error {
		return c.ClearVotes(r.Context())
	})))
	mux.GET(api+"/votes/result", serveVoteResult(cfg, ctl, errs))

	mux.GET(api+"/words/random", host(serveRandomWords(cfg, words, errs)))
}
