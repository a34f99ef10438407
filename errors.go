/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Seednode/undercover/games/undercover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(cfg *Config) {
	zerolog.TimeFieldFormat = logDate

	if !cfg.logJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: logDate})
	}

	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Info().Msgf(format, args...)
}

// statusFor maps a controller error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, undercover.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, undercover.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, undercover.ErrConfiguration),
		errors.Is(err, undercover.ErrNoParticipants),
		errors.Is(err, undercover.ErrInvalidArgument):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
