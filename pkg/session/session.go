// Package session builds AWS SDK configurations, optionally by assuming a
// delegated role in a target region.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultSessionName is used when Config.SessionName is empty.
const DefaultSessionName = "control-aws"

// Config describes the role to assume.
type Config struct {
	// RoleARN is the ARN of the IAM role to assume.
	RoleARN string

	// Region is the region both STS and the returned configuration use.
	Region string

	// SessionName is the role session name recorded in CloudTrail.
	// Invalid characters are dropped; defaults to DefaultSessionName.
	SessionName string

	// ExternalID is passed to AssumeRole when the role's trust policy requires it.
	ExternalID string

	// Profile selects a shared config profile for the base credentials.
	Profile string

	// Duration is the requested session lifetime. Zero uses the STS default.
	Duration time.Duration
}

var (
	roleARNRegex = regexp.MustCompile(`^arn:aws[a-zA-Z-]*:iam::\d{12}:role/[a-zA-Z_0-9+=,.@\-/]+$`)
	regionRegex  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)
)

// Validate checks the role and region.
func (c Config) Validate() error {
	if err := ValidateRoleARN(c.RoleARN); err != nil {
		return err
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	return ValidateRegion(c.Region)
}

// ValidateRoleARN validates an IAM role ARN in any partition.
func ValidateRoleARN(arn string) error {
	if !roleARNRegex.MatchString(arn) {
		return fmt.Errorf("invalid AWS role ARN format: %s", arn)
	}
	return nil
}

// ValidateRegion validates the shape of a region name such as eu-west-1.
func ValidateRegion(region string) error {
	if !regionRegex.MatchString(region) {
		return fmt.Errorf("invalid AWS region: %s", region)
	}
	return nil
}

type options struct {
	stsClient stscreds.AssumeRoleAPIClient
}

// Option configures AssumeRole.
type Option func(*options)

// WithSTSClient sets the STS client used to assume the role.
func WithSTSClient(client stscreds.AssumeRoleAPIClient) Option {
	return func(o *options) {
		o.stsClient = client
	}
}

// LoadDefault loads configuration from the SDK default chain. Empty region
// or profile leave the chain's own resolution in place.
func LoadDefault(ctx context.Context, region, profile string) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load default config: %w", err)
	}
	return cfg, nil
}

// AssumeRole returns a configuration whose credentials come from assuming
// cfg.RoleARN with the default credential chain, pinned to cfg.Region.
// Credentials are fetched lazily on first use and cached until expiry.
func AssumeRole(ctx context.Context, cfg Config, opts ...Option) (aws.Config, error) {
	if err := cfg.Validate(); err != nil {
		return aws.Config{}, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := LoadDefault(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return aws.Config{}, err
	}

	client := o.stsClient
	if client == nil {
		client = sts.NewFromConfig(base)
	}

	provider := stscreds.NewAssumeRoleProvider(client, cfg.RoleARN, func(ao *stscreds.AssumeRoleOptions) {
		ao.RoleSessionName = SanitizeSessionName(cfg.SessionName)
		if cfg.ExternalID != "" {
			ao.ExternalID = aws.String(cfg.ExternalID)
		}
		if cfg.Duration > 0 {
			ao.Duration = cfg.Duration
		}
	})

	assumed := base.Copy()
	assumed.Region = cfg.Region
	assumed.Credentials = aws.NewCredentialsCache(provider)
	return assumed, nil
}

// SanitizeSessionName drops every character STS does not accept in a role
// session name. STS allows letters, digits and _+=,.@- with a length of
// 2 to 64; shorter results fall back to DefaultSessionName and longer ones
// are truncated.
func SanitizeSessionName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_+=,.@-", r)) {
			return r
		}
		return -1
	}, name)

	switch {
	case len(sanitized) < 2:
		return DefaultSessionName
	case len(sanitized) > 64:
		return sanitized[:64]
	}
	return sanitized
}
