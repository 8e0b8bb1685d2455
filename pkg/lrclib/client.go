package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lyricsync/pkg/provider"
)

// Client LRCLib客户端，快速主提供商
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

// LRCLibResponse LRCLib API响应结构
type LRCLibResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// NewClient 创建新的LRCLib客户端
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:        "https://lrclib.net/api",
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// GetProviderName 返回提供商名称
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// Search 按自由文本搜索候选曲目
func (c *Client) Search(ctx context.Context, query string) ([]provider.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var responses []LRCLibResponse
	if err := c.getJSON(ctx, searchURL, &responses); err != nil {
		return nil, err
	}

	log.Printf("INFO: [LRCLib] Found %d results for '%s'", len(responses), query)

	candidates := make([]provider.Candidate, 0, len(responses))
	for _, r := range responses {
		candidates = append(candidates, provider.Candidate{
			ID:         strconv.Itoa(r.ID),
			TrackName:  r.TrackName,
			ArtistName: r.ArtistName,
			Duration:   r.Duration,
			HasSynced:  r.SyncedLyrics != "",
		})
	}
	return candidates, nil
}

// FetchLyrics 根据曲目ID获取歌词
func (c *Client) FetchLyrics(ctx context.Context, id string) (*provider.Result, error) {
	var response LRCLibResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/get/%s", c.baseURL, url.PathEscape(id)), &response); err != nil {
		return nil, err
	}

	if response.SyncedLyrics == "" && response.PlainLyrics == "" {
		return nil, fmt.Errorf("record %s has no lyrics", id)
	}

	return &provider.Result{
		SyncedText:   response.SyncedLyrics,
		PlainText:    response.PlainLyrics,
		ProviderName: c.GetProviderName(),
	}, nil
}

// getJSON 带重试地发起GET请求并解析JSON响应
func (c *Client) getJSON(ctx context.Context, requestURL string, out interface{}) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("INFO: [LRCLib] Retrying request (attempt %d/%d)", attempt, c.maxRetries)
			select {
			case <-timeoutCtx.Done():
				return timeoutCtx.Err()
			case <-time.After(time.Duration(attempt*500) * time.Millisecond):
			}
		}

		req, reqErr := http.NewRequestWithContext(timeoutCtx, "GET", requestURL, nil)
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("User-Agent", "lyricsync/1.0")

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err != nil {
			log.Printf("WARN: [LRCLib] Request failed: %v (attempt %d/%d)", err, attempt+1, c.maxRetries)
		} else {
			log.Printf("WARN: [LRCLib] Request returned status %d (attempt %d/%d)", resp.StatusCode, attempt+1, c.maxRetries)
			resp.Body.Close()
		}

		if attempt == c.maxRetries {
			if err != nil {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			return fmt.Errorf("request failed after %d attempts with status %d", attempt+1, resp.StatusCode)
		}
	}

	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
