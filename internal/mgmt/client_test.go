package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"outpostlabs/outpost/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	// Keep transport retries out of test timing.
	c.retryCfg.MaxAttempts = 1
	return c
}

func TestGetInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/server" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(serverResponse{
			Name:               "frankfurt-1",
			Version:            "1.6.0",
			MetricsEnabled:     true,
			HostnameForKeys:    "203.0.113.10",
			AccessKeyDataLimit: &limitBody{Bytes: 1000},
		})
	}))

	got, err := c.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}

	want := domain.ServerInfo{
		Name:             "frankfurt-1",
		Hostname:         "203.0.113.10",
		Version:          "1.6.0",
		MetricsEnabled:   true,
		DefaultDataLimit: &domain.DataLimit{Bytes: 1000},
		InstallCompleted: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestListAccessKeys(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access-keys" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(accessKeyListResponse{AccessKeys: []accessKeyResponse{
			{ID: "0", Name: "alice", AccessURL: "ss://example"},
			{ID: "1", DataLimit: &limitBody{Bytes: 42}},
		}})
	}))

	keys, err := c.ListAccessKeys(context.Background())
	if err != nil {
		t.Fatalf("ListAccessKeys failed: %v", err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Name != "alice" || keys[0].AccessURL != "ss://example" {
		t.Errorf("unexpected first key: %+v", keys[0])
	}
	if keys[1].DataLimit == nil || keys[1].DataLimit.Bytes != 42 {
		t.Errorf("expected per-key limit of 42 bytes, got %+v", keys[1].DataLimit)
	}
}

func TestSetAccessKeyDataLimit_SendsLimitBody(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody struct {
		Limit limitBody `json:"limit"`
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.SetAccessKeyDataLimit(context.Background(), "7", domain.DataLimit{Bytes: 5000})
	if err != nil {
		t.Fatalf("SetAccessKeyDataLimit failed: %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/access-keys/7/data-limit" {
		t.Errorf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotBody.Limit.Bytes != 5000 {
		t.Errorf("expected limit 5000 bytes, got %d", gotBody.Limit.Bytes)
	}
}

func TestUsageByKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics/transfer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(transferResponse{
			BytesTransferredByUserID: map[string]int64{"0": 1024, "3": 9},
		})
	}))

	usage, err := c.UsageByKey(context.Background())
	if err != nil {
		t.Fatalf("UsageByKey failed: %v", err)
	}
	if usage["0"] != 1024 || usage["3"] != 9 {
		t.Errorf("unexpected usage map: %v", usage)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := c.ListAccessKeys(context.Background())
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestHealth_DownServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	c.retryCfg.MaxAttempts = 1
	srv.Close()

	if err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestWaitForInstall_ReturnsOnceHealthy(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(serverResponse{Name: "ok"})
	}))

	if err := c.WaitForInstall(context.Background()); err != nil {
		t.Fatalf("WaitForInstall failed: %v", err)
	}
}

func TestWaitForInstall_GivesUpAfterWaitLimit(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	c.retryCfg.MaxAttempts = 1
	srv.Close()

	// A host deleted mid-install never brings the API up; the wait must
	// end on its own instead of probing forever.
	c.installWait = 20 * time.Millisecond

	err := c.WaitForInstall(context.Background())
	if err == nil {
		t.Fatal("expected the bounded wait to fail")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected an install failure, got context error %v", err)
	}
	if !strings.Contains(err.Error(), "install did not finish") {
		t.Errorf("expected the error to name the exhausted wait, got %v", err)
	}
}

func TestWaitForInstall_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	c.retryCfg.MaxAttempts = 1
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.WaitForInstall(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
