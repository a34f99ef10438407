/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
	storePebble = "pebble"
)

type Config struct {
	bind               string
	clearVotesOnReopen bool
	countdown          int
	countdownInterval  time.Duration
	db                 string
	hostID             string
	logJSON            bool
	pollInterval       time.Duration
	port               int
	prefix             string
	profile            bool
	store              string
	tlsCert            string
	tlsKey             string
	verbose            bool
	version            bool
	words              string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.countdown < 1 {
		return fmt.Errorf("invalid countdown (must be at least 1): %d", c.countdown)
	}
	if c.countdownInterval < 10*time.Millisecond {
		return fmt.Errorf("invalid countdown interval (must be at least 10ms): %s", c.countdownInterval)
	}
	if c.pollInterval < 100*time.Millisecond {
		return fmt.Errorf("invalid poll interval (must be at least 100ms): %s", c.pollInterval)
	}
	if strings.TrimSpace(c.hostID) == "" {
		return errors.New("--host-id must not be empty")
	}

	switch c.store {
	case storeMemory:
	case storeSQLite, storePebble:
		if c.db == "" {
			return fmt.Errorf("--db is required with --store %s", c.store)
		}
	default:
		return fmt.Errorf("invalid store %q (must be one of %s, %s, %s)", c.store, storeMemory, storeSQLite, storePebble)
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("UNDERCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "undercover",
		Short:         "Host a game of Who Is Undercover for a room of phones.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			setupLogging(cfg)

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: UNDERCOVER_BIND)")
	fs.BoolVar(&cfg.clearVotesOnReopen, "clear-votes-on-reopen", false, "discard votes when a closed vote round is reopened (env: UNDERCOVER_CLEAR_VOTES_ON_REOPEN)")
	fs.IntVar(&cfg.countdown, "countdown", 3, "ticks between starting a game and dealing roles (env: UNDERCOVER_COUNTDOWN)")
	fs.DurationVar(&cfg.countdownInterval, "countdown-interval", time.Second, "time between countdown ticks (env: UNDERCOVER_COUNTDOWN_INTERVAL)")
	fs.StringVar(&cfg.db, "db", "", "path to the database for sqlite and pebble stores (env: UNDERCOVER_DB)")
	fs.StringVar(&cfg.hostID, "host-id", "host", "reserved participant id of the host (env: UNDERCOVER_HOST_ID)")
	fs.BoolVar(&cfg.logJSON, "log-json", false, "write logs as JSON instead of console text (env: UNDERCOVER_LOG_JSON)")
	fs.DurationVar(&cfg.pollInterval, "poll-interval", 2*time.Second, "how often clients poll for state (env: UNDERCOVER_POLL_INTERVAL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: UNDERCOVER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: UNDERCOVER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: UNDERCOVER_PROFILE)")
	fs.StringVar(&cfg.store, "store", storeMemory, "where to keep game state: memory, sqlite or pebble (env: UNDERCOVER_STORE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: UNDERCOVER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: UNDERCOVER_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: UNDERCOVER_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: UNDERCOVER_VERSION)")
	fs.StringVar(&cfg.words, "words", "", "path to a YAML word pair catalogue, instead of the built-in one (env: UNDERCOVER_WORDS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("undercover v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
