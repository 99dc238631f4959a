package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nerrad567/neobridge/internal/command"
	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

const name = "neobridge"

func newRootCommand(stdout, stderr io.Writer, code *int) *cli.Command {
	return &cli.Command{
		Name:            name,
		Usage:           "Bridge a Heatmiser neoHub to MQTT",
		Version:         fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		ArgsUsage:       "[command [args...]]",
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Description: fmt.Sprintf(`Without a command, polls the hub and publishes a snapshot on heating/state.

Commands:
  %s`, strings.Join(command.Names(), ", ")),
		Flags: rootFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			args := cmd.Args().Slice()
			if len(args) == 0 {
				return runPoll(ctx, cfg)
			}
			*code = runCommand(ctx, cfg, args, stdout)
			return nil
		},
	}
}

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration file",
			Sources: cli.EnvVars("NEOBRIDGE_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level (debug, info, warn, error)",
			Sources: cli.EnvVars("NEOBRIDGE_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "broker",
			Aliases: []string{"b"},
			Usage:   "MQTT broker host",
			Sources: cli.EnvVars("NEOBRIDGE_MQTT_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "MQTT broker port",
			Sources: cli.EnvVars("NEOBRIDGE_MQTT_PORT"),
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "MQTT username",
			Sources: cli.EnvVars("NEOBRIDGE_MQTT_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"pw"},
			Usage:   "MQTT password",
			Sources: cli.EnvVars("NEOBRIDGE_MQTT_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "neoip",
			Aliases: []string{"ni"},
			Usage:   "neoHub address",
			Sources: cli.EnvVars("NEOBRIDGE_HUB_HOST"),
		},
		&cli.IntFlag{
			Name:    "neoport",
			Usage:   "neoHub port",
			Sources: cli.EnvVars("NEOBRIDGE_HUB_PORT"),
		},
		&cli.StringFlag{
			Name:    "db-driver",
			Usage:   "storage driver (sqlite, postgres); empty disables storage",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_DRIVER"),
		},
		&cli.StringFlag{
			Name:    "db-path",
			Usage:   "SQLite database file",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_PATH"),
		},
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_HOST"),
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "PostgreSQL port",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_PORT"),
		},
		&cli.StringFlag{
			Name:    "db-name",
			Usage:   "PostgreSQL database name",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_NAME"),
		},
		&cli.StringFlag{
			Name:    "db-user",
			Usage:   "PostgreSQL user",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_USER"),
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "PostgreSQL password",
			Sources: cli.EnvVars("NEOBRIDGE_STORAGE_PASSWORD"),
		},
	}
}

// loadConfig reads the configuration file and environment, then applies
// any flags that were set and validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cli.Command, cfg *config.Config) {
	setString := func(flag string, dst *string) {
		if cmd.IsSet(flag) {
			*dst = cmd.String(flag)
		}
	}
	setInt := func(flag string, dst *int) {
		if cmd.IsSet(flag) {
			*dst = cmd.Int(flag)
		}
	}

	setString("log-level", &cfg.Logging.Level)
	setString("broker", &cfg.MQTT.Broker.Host)
	setInt("port", &cfg.MQTT.Broker.Port)
	setString("user", &cfg.MQTT.Auth.Username)
	setString("password", &cfg.MQTT.Auth.Password)
	setString("neoip", &cfg.Hub.Host)
	setInt("neoport", &cfg.Hub.Port)
	setString("db-driver", &cfg.Storage.Driver)
	setString("db-path", &cfg.Storage.Path)
	setString("db-host", &cfg.Storage.Host)
	setInt("db-port", &cfg.Storage.Port)
	setString("db-name", &cfg.Storage.Name)
	setString("db-user", &cfg.Storage.User)
	setString("db-password", &cfg.Storage.Password)
}
