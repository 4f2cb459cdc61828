package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server   string
	attempts int
	delay    time.Duration
	timeout  time.Duration
	verbose  bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid server url (want ws://host:port/ws): %q", c.server)
	}
	if c.attempts < 1 {
		return errors.New("--attempts must be at least 1")
	}
	if c.timeout <= 0 {
		return errors.New("--timeout must be positive")
	}
	return nil
}

func (c *Config) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PLAYCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "playctl",
		Short:   "Inspect and edit a shared tabletop playground.",
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:3001/ws", "websocket url of the playground server (env: PLAYCTL_SERVER)")
	fs.IntVar(&cfg.attempts, "attempts", 5, "connection attempts before giving up (env: PLAYCTL_ATTEMPTS)")
	fs.DurationVar(&cfg.delay, "delay", time.Second, "delay between connection attempts (env: PLAYCTL_DELAY)")
	fs.DurationVarP(&cfg.timeout, "timeout", "t", 10*time.Second, "time allowed for a command to complete (env: PLAYCTL_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log connection details to stderr (env: PLAYCTL_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		newStateCmd(cfg),
		newWatchCmd(cfg),
		newAddTextCmd(cfg),
		newMoveCmd(cfg),
		newPriorityCmd(cfg, "raise", "Draw an element one layer higher"),
		newPriorityCmd(cfg, "lower", "Draw an element one layer lower"),
		newDeleteElementCmd(cfg),
		newClearCmd(cfg),
		newAddTemplateCmd(cfg),
		newDeleteTemplateCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("playctl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
