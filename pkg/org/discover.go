package org

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the Organizations API used by discovery.
// *organizations.Client satisfies it.
type API interface {
	organizations.ListAccountsAPIClient
	TagsAPI
}

// Discoverer lists the accounts of an organization and reads their tags.
type Discoverer struct {
	client      API
	concurrency int
	pageSize    int32
	log         logrus.FieldLogger
}

// Option configures the Discoverer.
type Option func(*Discoverer)

// WithConcurrency caps the number of accounts read at once.
// Zero or a negative value means no cap.
func WithConcurrency(n int) Option {
	return func(d *Discoverer) {
		d.concurrency = n
	}
}

// WithPageSize sets MaxResults on each ListAccounts call.
func WithPageSize(n int32) Option {
	return func(d *Discoverer) {
		d.pageSize = n
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Discoverer) {
		d.log = l
	}
}

// New creates a Discoverer using the given Organizations client.
func New(client API, opts ...Option) *Discoverer {
	d := &Discoverer{
		client: client,
		log:    discardLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DiscoverAccounts discovers all accounts in the organization reachable with cfg.
//
// The credentials in cfg need the following permissions:
//
//	{
//	  "Version": "2012-10-17",
//	  "Statement": [{
//	    "Effect": "Allow",
//	    "Action": ["organizations:ListAccounts", "organizations:ListTagsForResource"],
//	    "Resource": ["*"]
//	  }]
//	}
func DiscoverAccounts(ctx context.Context, cfg aws.Config, opts ...Option) ([]Account, error) {
	return New(organizations.NewFromConfig(cfg), opts...).Discover(ctx)
}

// Discover pages through ListAccounts and reads every account concurrently,
// starting readers as soon as their page arrives. The first failure cancels
// the remaining readers and is returned; no partial result is ever returned.
// Accounts are sorted by ID.
func (d *Discoverer) Discover(ctx context.Context) ([]Account, error) {
	log := d.log.WithField("run_id", uuid.NewString())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}

	var (
		mu       sync.Mutex
		accounts []Account
	)

	listErr := d.listAccounts(gctx, log, func(id string) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errJoin(id, r)
				}
			}()

			if err := gctx.Err(); err != nil {
				return errListTags(id, err)
			}

			acc, err := ReadAccount(gctx, d.client, id)
			if err != nil {
				log.WithField("account_id", id).WithError(err).Debug("account read failed")
				return err
			}

			mu.Lock()
			accounts = append(accounts, acc)
			mu.Unlock()
			return nil
		})
	})

	if listErr != nil {
		// A reader failure cancels gctx, which in turn fails the next page
		// request; report the reader's error rather than that echo.
		readerFailed := gctx.Err() != nil && ctx.Err() == nil
		cancel()
		if err := g.Wait(); readerFailed && err != nil {
			return nil, err
		}
		return nil, listErr
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(accounts, func(a, b Account) int {
		return strings.Compare(a.ID, b.ID)
	})

	log.WithField("accounts", len(accounts)).Debug("discovery complete")
	return accounts, nil
}

// listAccounts walks ListAccounts pages in order and calls dispatch for each
// account ID.
func (d *Discoverer) listAccounts(ctx context.Context, log logrus.FieldLogger, dispatch func(id string)) error {
	input := &organizations.ListAccountsInput{}
	if d.pageSize > 0 {
		input.MaxResults = aws.Int32(d.pageSize)
	}

	pages := organizations.NewListAccountsPaginator(d.client, input)
	for page := 1; pages.HasMorePages(); page++ {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return errListAccounts(err)
		}
		if out == nil || out.Accounts == nil {
			return errBadAccounts()
		}

		log.WithField("page", page).WithField("accounts", len(out.Accounts)).Debug("listed accounts page")

		for _, acc := range out.Accounts {
			if err := ctx.Err(); err != nil {
				return errListAccounts(err)
			}
			id := aws.ToString(acc.Id)
			if id == "" {
				return errBadAccountID()
			}
			dispatch(id)
		}
	}

	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
