package generate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *StabilityClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewStabilityClient("test-key", 5*time.Second)
	c.baseURL = srv.URL
	c.accountURL = srv.URL + "/v1/user/account"
	return c
}

func TestSubmitSendsMultipartJob(t *testing.T) {
	t.Parallel()

	image := []byte("fake jpeg bytes")
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image-to-video" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("cfg_scale"); got != "1.8" {
			t.Errorf("cfg_scale=%q", got)
		}
		if got := r.FormValue("motion_bucket_id"); got != "127" {
			t.Errorf("motion_bucket_id=%q", got)
		}
		if got := r.FormValue("prompt"); got != "slow motion" {
			t.Errorf("prompt=%q", got)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image field missing: %v", err)
		} else {
			var buf bytes.Buffer
			buf.ReadFrom(f)
			if !bytes.Equal(buf.Bytes(), image) {
				t.Error("image bytes mismatch")
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"job-abc"}`))
	})

	jobID, err := c.Submit(context.Background(), image, "slow motion")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID != "job-abc" {
		t.Fatalf("job id mismatch: %q", jobID)
	}
}

func TestSubmitRejectionCapturesBody(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":["image too small"]}`))
	})

	_, err := c.Submit(context.Background(), []byte("img"), "")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Status != http.StatusBadRequest {
		t.Fatalf("status=%d", provErr.Status)
	}
	if !bytes.Contains([]byte(provErr.Body), []byte("image too small")) {
		t.Fatalf("body not captured: %q", provErr.Body)
	}
}

func TestPollOnceClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	bigVideo := bytes.Repeat([]byte{0xAB}, MinVideoBytes)

	tests := []struct {
		name   string
		status int
		body   []byte
		want   PollStatus
	}{
		{"processing", http.StatusAccepted, nil, PollPending},
		{"ready", http.StatusOK, bigVideo, PollReady},
		{"tiny body is not a video", http.StatusOK, []byte("oops"), PollFailed},
		{"terminal error", http.StatusNotFound, []byte("gone"), PollFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write(tc.body)
			})

			res, err := c.PollOnce(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("poll: %v", err)
			}
			if res.Status != tc.want {
				t.Fatalf("status=%v want %v", res.Status, tc.want)
			}
			if tc.want == PollReady && !bytes.Equal(res.Video, bigVideo) {
				t.Fatal("video bytes mismatch")
			}
			if tc.want == PollFailed && res.Reason == nil {
				t.Fatal("failed outcome must carry a reason")
			}
		})
	}
}

func TestCheckAccount(t *testing.T) {
	t.Parallel()

	ok := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"acct"}`))
	})
	if err := ok.CheckAccount(context.Background()); err != nil {
		t.Fatalf("expected account check to pass: %v", err)
	}

	bad := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := bad.CheckAccount(context.Background()); err == nil {
		t.Fatal("expected account check to fail")
	}
}
