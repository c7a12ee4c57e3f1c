package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/controlant/control-aws/pkg/config"
	"github.com/controlant/control-aws/pkg/org"
	"github.com/controlant/control-aws/pkg/session"
)

// discoverFunc runs discovery for a resolved configuration.
type discoverFunc func(ctx context.Context, cfg config.Config, log logrus.FieldLogger) ([]org.Account, error)

func newAccountsCmd(stdout, stderr io.Writer, run discoverFunc) *cobra.Command {
	var (
		roleARN     string
		region      string
		sessionName string
		externalID  string
		profile     string
		output      string
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List organization accounts with their environment, tier and domain",
		Example: `  # Using the default credential chain
  control-aws accounts

  # Assuming a delegated role
  control-aws accounts --role-arn arn:aws:iam::123456789012:role/org-reader --region eu-west-1 -o json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("role-arn") {
				cfg.RoleARN = roleARN
			}
			if flags.Changed("region") {
				cfg.Region = region
			}
			if flags.Changed("session-name") {
				cfg.SessionName = sessionName
			}
			if flags.Changed("external-id") {
				cfg.ExternalID = externalID
			}
			if flags.Changed("profile") {
				cfg.Profile = profile
			}
			if flags.Changed("output") {
				cfg.Output = output
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			log := newLogger(stderr, cfg.Level())

			accounts, err := run(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return renderAccounts(stdout, cfg.Output, accounts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&roleARN, "role-arn", "", "Role to assume before discovery")
	flags.StringVar(&region, "region", "", "AWS region (required with --role-arn)")
	flags.StringVar(&sessionName, "session-name", session.DefaultSessionName, "Role session name")
	flags.StringVar(&externalID, "external-id", "", "External ID for the assumed role")
	flags.StringVar(&profile, "profile", "", "Shared config profile for base credentials")
	flags.StringVarP(&output, "output", "o", config.OutputTable, "Output format: table, json or yaml")
	flags.IntVar(&concurrency, "concurrency", 0, "Maximum concurrent tag reads (0 = unbounded)")
	flags.DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for the whole discovery")

	return cmd
}

// discover builds credentials and runs account discovery.
func discover(ctx context.Context, cfg config.Config, log logrus.FieldLogger) ([]org.Account, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.RoleARN != "" {
		log.WithField("role_arn", cfg.RoleARN).WithField("region", cfg.Region).Debug("assuming role")
		awsCfg, err = session.AssumeRole(ctx, cfg.Session())
	} else {
		awsCfg, err = session.LoadDefault(ctx, cfg.Region, cfg.Profile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	accounts, err := org.DiscoverAccounts(ctx, awsCfg,
		org.WithConcurrency(cfg.Concurrency),
		org.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).
			WithField("account_id", org.GetErrorAccount(err)).
			WithField("retryable", org.IsRetryable(err)).
			Error("discovery failed")
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	log.WithField("accounts", len(accounts)).Info("discovery complete")
	return accounts, nil
}

func renderAccounts(w io.Writer, format string, accounts []org.Account) error {
	if accounts == nil {
		accounts = []org.Account{}
	}

	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(accounts)

	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(accounts); err != nil {
			return err
		}
		return enc.Close()

	case config.OutputTable:
		if len(accounts) == 0 {
			_, err := fmt.Fprintln(w, "No accounts found")
			return err
		}
		fmt.Fprintf(w, "%-14s %-20s %-14s %s\n", "ID", "ENVIRONMENT", "TIER", "DOMAIN")
		for _, acc := range accounts {
			fmt.Fprintf(w, "%-14s %-20s %-14s %s\n",
				acc.ID,
				orDash(acc.Environment),
				orDash(acc.Tier),
				orDash(acc.Domain),
			)
		}
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
