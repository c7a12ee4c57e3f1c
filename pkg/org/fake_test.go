package org

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// fakeOrg is an in-memory Organizations API. Page tokens are page indexes.
type fakeOrg struct {
	// pages holds the accounts of each page; a nil entry is a page with no
	// accounts collection.
	pages     [][]types.Account
	pageErr   map[int]error
	blockPage map[int]bool

	tags      map[string][]types.Tag
	nilTags   map[string]bool
	tagErr    map[string]error
	blockTags map[string]bool
	panicOn   string
	tagDelay  time.Duration

	mu       sync.Mutex
	tagCalls []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeOrg) ListAccounts(ctx context.Context, in *organizations.ListAccountsInput, _ ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	idx := 0
	if in.NextToken != nil {
		idx, _ = strconv.Atoi(*in.NextToken)
	}

	if f.blockPage[idx] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.pageErr[idx]; err != nil {
		return nil, err
	}

	out := &organizations.ListAccountsOutput{Accounts: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.NextToken = aws.String(strconv.Itoa(idx + 1))
	}
	return out, nil
}

func (f *fakeOrg) ListTagsForResource(ctx context.Context, in *organizations.ListTagsForResourceInput, _ ...func(*organizations.Options)) (*organizations.ListTagsForResourceOutput, error) {
	id := aws.ToString(in.ResourceId)

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.tagCalls = append(f.tagCalls, id)
	f.mu.Unlock()

	if id == f.panicOn {
		panic("boom")
	}
	if f.tagDelay > 0 {
		time.Sleep(f.tagDelay)
	}
	if f.blockTags[id] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.tagErr[id]; err != nil {
		return nil, err
	}
	if f.nilTags[id] {
		return &organizations.ListTagsForResourceOutput{}, nil
	}

	tags := f.tags[id]
	if tags == nil {
		tags = []types.Tag{}
	}
	return &organizations.ListTagsForResourceOutput{Tags: tags}, nil
}

func (f *fakeOrg) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tagCalls...)
}

func accounts(ids ...string) []types.Account {
	out := make([]types.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Account{Id: aws.String(id)})
	}
	return out
}

func tag(key, value string) types.Tag {
	return types.Tag{Key: aws.String(key), Value: aws.String(value)}
}

// pageSizeRecorder records MaxResults of every ListAccounts call.
type pageSizeRecorder struct {
	fakeOrg
	sizes []int32
}

func (r *pageSizeRecorder) ListAccounts(ctx context.Context, in *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	r.sizes = append(r.sizes, aws.ToInt32(in.MaxResults))
	return r.fakeOrg.ListAccounts(ctx, in, optFns...)
}
