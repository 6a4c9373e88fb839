package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	log := logrus.New()

	cmd := &cobra.Command{
		Use:           "datumctl",
		Short:         "Evaluate a graph of reactive datums",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogger(log, cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")

	cmd.AddCommand(newEvalCmd(log))
	return cmd
}

func configureLogger(log *logrus.Logger, cmd *cobra.Command, opts *rootOptions) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("parsing --log-level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(cmd.ErrOrStderr())

	switch opts.logFormat {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown --log-format %q", opts.logFormat)
	}
	return nil
}
