// Package main is the entry point for the control-aws CLI.
//
// The CLI discovers the accounts of an AWS organization together with their
// classification tags, optionally after assuming a delegated role.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const exitError = 1

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "control-aws",
		Short: "Discover AWS organization accounts and their classification",
		Long: `control-aws lists the accounts of an AWS organization and reads the
catapult.controlant.com/environment, /tier and /domain tags of each one.

Credentials come from the default AWS chain. With --role-arn, a delegated
role is assumed in --region first.

Environment:
  AWS_REGION, AWS_PROFILE
  CONTROL_AWS_ROLE_ARN, CONTROL_AWS_SESSION_NAME, CONTROL_AWS_EXTERNAL_ID
  CONTROL_AWS_CONCURRENCY, CONTROL_AWS_TIMEOUT
  CONTROL_AWS_LOG_LEVEL, CONTROL_AWS_OUTPUT`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newAccountsCmd(stdout, stderr, discover))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "control-aws %s\n", version)
		},
	}
}

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}
