package org

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const targetPrefix = "AWSOrganizationsV20161128."

// organizationsServer replays canned Organizations responses over awsjson1.1.
type organizationsServer struct {
	t        *testing.T
	accounts string
	tags     map[string]string
	denyTags map[string]bool

	mu       sync.Mutex
	requests []string
}

func (s *organizationsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")
	body, err := io.ReadAll(r.Body)
	assert.NoError(s.t, err)

	s.mu.Lock()
	s.requests = append(s.requests, target)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-amz-json-1.1")

	switch target {
	case targetPrefix + "ListAccounts":
		_, _ = io.WriteString(w, s.accounts)

	case targetPrefix + "ListTagsForResource":
		var in struct {
			ResourceId string
		}
		assert.NoError(s.t, json.Unmarshal(body, &in))

		if s.denyTags[in.ResourceId] {
			w.Header().Set("X-Amzn-ErrorType", "AccessDeniedException")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"__type":"AccessDeniedException","Message":"not allowed"}`)
			return
		}
		_, _ = io.WriteString(w, s.tags[in.ResourceId])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *organizationsServer) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func testConfig(srv *httptest.Server) aws.Config {
	return aws.Config{
		Region:           "us-east-1",
		Credentials:      credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint:     aws.String(srv.URL),
		HTTPClient:       srv.Client(),
		RetryMaxAttempts: 1,
	}
}

func TestDiscoverAccounts_SDK(t *testing.T) {
	handler := &organizationsServer{
		t:        t,
		accounts: `{"Accounts":[{"Id":"11111"},{"Id":"22222"}]}`,
		tags: map[string]string{
			"11111": `{"Tags":[
				{"Key":"catapult.controlant.com/environment","Value":"development"},
				{"Key":"catapult.controlant.com/domain","Value":"testing"},
				{"Key":"catapult.controlant.com/tier","Value":"development"}
			]}`,
			"22222": `{"Tags":[]}`,
		},
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	got, err := DiscoverAccounts(context.Background(), testConfig(srv))
	require.NoError(t, err)

	assert.Equal(t, []Account{
		{ID: "11111", Environment: "development", Tier: "development", Domain: "testing"},
		{ID: "22222"},
	}, got)
	assert.ElementsMatch(t, []string{
		targetPrefix + "ListAccounts",
		targetPrefix + "ListTagsForResource",
		targetPrefix + "ListTagsForResource",
	}, handler.recorded())
}

func TestDiscoverAccounts_SDKAccessDenied(t *testing.T) {
	handler := &organizationsServer{
		t:        t,
		accounts: `{"Accounts":[{"Id":"11111"}]}`,
		denyTags: map[string]bool{"11111": true},
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	got, err := DiscoverAccounts(context.Background(), testConfig(srv))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, IsKind(err, KindListTags))
	assert.Equal(t, "11111", GetErrorAccount(err))
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestDiscoverAccounts_SDKMissingAccounts(t *testing.T) {
	handler := &organizationsServer{t: t, accounts: `{}`}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	_, err := DiscoverAccounts(context.Background(), testConfig(srv))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadAccounts))
}
