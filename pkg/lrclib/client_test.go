package lrclib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestClientRetry 测试重试机制
func TestClientRetry(t *testing.T) {
	requestCount := 0

	// 模拟间歇性失败：前两次500，第三次成功
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":123,"trackName":"Test Song","artistName":"Test Artist","syncedLyrics":"[00:01.00]line"}]`))
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		baseURL:        server.URL,
		maxRetries:     3,
		requestTimeout: 5 * time.Second,
	}

	candidates, err := client.Search(context.Background(), "test song")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if requestCount != 3 {
		t.Errorf("expected 3 retries, got %d", requestCount)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].ID != "123" || !candidates[0].HasSynced {
		t.Errorf("unexpected candidate: %+v", candidates[0])
	}
}

// TestSearchEmpty 空结果不报错
func TestSearchEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		baseURL:        server.URL,
		maxRetries:     0,
		requestTimeout: 2 * time.Second,
	}

	candidates, err := client.Search(context.Background(), "nothing here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

// TestFetchLyrics 获取歌词
func TestFetchLyrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get/123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":123,"trackName":"Test Song","artistName":"Test Artist","syncedLyrics":"[00:01.00]line","plainLyrics":"line"}`))
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 1 * time.Second},
		baseURL:        server.URL,
		maxRetries:     0,
		requestTimeout: 2 * time.Second,
	}

	result, err := client.FetchLyrics(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SyncedText != "[00:01.00]line" {
		t.Errorf("unexpected synced text: %q", result.SyncedText)
	}
	if result.ProviderName != "LRCLib" {
		t.Errorf("unexpected provider name: %q", result.ProviderName)
	}
}

// TestTimeout 测试超时机制
func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &Client{
		httpClient:     &http.Client{Timeout: 500 * time.Millisecond},
		baseURL:        server.URL,
		maxRetries:     0,
		requestTimeout: 500 * time.Millisecond,
	}

	_, err := client.Search(context.Background(), "slow")
	if err == nil {
		t.Error("expected request to fail on timeout, but it succeeded")
	}
}
