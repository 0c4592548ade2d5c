package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-failchain/internal/failure"
	"github.com/miradorstack/mirador-failchain/internal/models"
)

func TestPublishPostsReport(t *testing.T) {
	hits := 0
	client := NewReporterClient("https://reporter.example.com/base/", "/api/v1/failures", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", req.Method)
		}
		if req.URL.Path != "/base/api/v1/failures" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var payload struct {
			ID    string `json:"id"`
			Chain struct {
				Messages      []string `json:"messages"`
				ParentIndices []int    `json:"parent_indices"`
			} `json:"chain"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.ID != "report-1" || len(payload.Chain.Messages) != 2 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		if payload.Chain.ParentIndices[1] != 0 {
			t.Fatalf("unexpected parent indices: %v", payload.Chain.ParentIndices)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
		}, nil
	}))

	report := models.Report{
		ID:     "report-1",
		Source: models.SourceLive,
		Chain:  failure.FromError(fmt.Errorf("outer: %w", errors.New("inner"))),
	}

	if err := client.Publish(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one request, got %d", hits)
	}
}

func TestPublishNon200(t *testing.T) {
	client := NewReporterClient("https://reporter.example.com", "/api/v1/failures", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Status:     "503 Service Unavailable",
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
		}, nil
	}))

	err := client.Publish(context.Background(), models.Report{ID: "r"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestPublishAcceptedStatuses(t *testing.T) {
	cases := []struct {
		code    int
		wantErr bool
	}{
		{code: http.StatusOK},
		{code: http.StatusAccepted},
		{code: http.StatusCreated, wantErr: true},
		{code: http.StatusNoContent, wantErr: true},
	}
	for _, tc := range cases {
		client := NewReporterClient("https://reporter.example.com", "/api/v1/failures", time.Second)
		client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: tc.code,
				Status:     http.StatusText(tc.code),
				Body:       io.NopCloser(strings.NewReader("")),
				Header:     make(http.Header),
			}, nil
		}))

		err := client.Publish(context.Background(), models.Report{ID: "r"})
		if (err != nil) != tc.wantErr {
			t.Fatalf("status %d: wantErr=%v, got %v", tc.code, tc.wantErr, err)
		}
	}
}

func TestPublishNotConfigured(t *testing.T) {
	var nilClient *ReporterClient
	if err := nilClient.Publish(context.Background(), models.Report{}); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := NewReporterClient("", "/x", time.Second).Publish(context.Background(), models.Report{}); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}
