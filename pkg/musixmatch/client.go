package musixmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"lyricsync/pkg/provider"
)

// Client Musixmatch客户端，较慢但带逐词时间（richsync）的备选提供商。
// 使用桌面端API，需要先获取匿名usertoken
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration

	tokenMu sync.Mutex
	token   string
}

const defaultAppID = "web-desktop-app-v1.0"

// apiMessage Musixmatch响应的通用外层
type apiMessage struct {
	Message struct {
		Header struct {
			StatusCode int    `json:"status_code"`
			Hint       string `json:"hint"`
		} `json:"header"`
		Body json.RawMessage `json:"body"`
	} `json:"message"`
}

type tokenBody struct {
	UserToken string `json:"user_token"`
}

type searchBody struct {
	TrackList []struct {
		Track struct {
			TrackID      int     `json:"track_id"`
			TrackName    string  `json:"track_name"`
			ArtistName   string  `json:"artist_name"`
			TrackLength  float64 `json:"track_length"`
			HasSubtitles int     `json:"has_subtitles"`
			HasRichsync  int     `json:"has_richsync"`
		} `json:"track"`
	} `json:"track_list"`
}

type subtitleBody struct {
	Subtitle struct {
		SubtitleBody string `json:"subtitle_body"`
	} `json:"subtitle"`
}

type richsyncBody struct {
	Richsync struct {
		RichsyncBody string `json:"richsync_body"`
	} `json:"richsync"`
}

type lyricsBody struct {
	Lyrics struct {
		LyricsBody string `json:"lyrics_body"`
	} `json:"lyrics"`
}

// NewClient 创建新的Musixmatch客户端
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:        "https://apic-desktop.musixmatch.com/ws/1.1",
		requestTimeout: 10 * time.Second,
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "Musixmatch"
}

// Search 搜索歌曲
func (c *Client) Search(ctx context.Context, query string) ([]provider.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page_size", "10")
	params.Set("page", "1")
	params.Set("s_track_rating", "desc")

	var body searchBody
	if err := c.call(ctx, "track.search", params, &body); err != nil {
		return nil, err
	}

	log.Printf("INFO: [Musixmatch] Found %d results for '%s'", len(body.TrackList), query)

	candidates := make([]provider.Candidate, 0, len(body.TrackList))
	for _, entry := range body.TrackList {
		track := entry.Track
		candidates = append(candidates, provider.Candidate{
			ID:         strconv.Itoa(track.TrackID),
			TrackName:  track.TrackName,
			ArtistName: track.ArtistName,
			Duration:   track.TrackLength,
			HasSynced:  track.HasSubtitles == 1 || track.HasRichsync == 1,
		})
	}
	return candidates, nil
}

// FetchLyrics 获取歌词。优先richsync（逐词时间），
// 其次subtitle（逐行LRC），最后退回纯文本
func (c *Client) FetchLyrics(ctx context.Context, id string) (*provider.Result, error) {
	params := url.Values{}
	params.Set("track_id", id)

	var rich richsyncBody
	if err := c.call(ctx, "track.richsync.get", params, &rich); err == nil && rich.Richsync.RichsyncBody != "" {
		return &provider.Result{
			SyncedText:   rich.Richsync.RichsyncBody,
			ProviderName: c.GetProviderName(),
		}, nil
	}

	var sub subtitleBody
	if err := c.call(ctx, "track.subtitle.get", params, &sub); err == nil && sub.Subtitle.SubtitleBody != "" {
		return &provider.Result{
			SyncedText:   sub.Subtitle.SubtitleBody,
			ProviderName: c.GetProviderName(),
		}, nil
	}

	var plain lyricsBody
	if err := c.call(ctx, "track.lyrics.get", params, &plain); err != nil {
		return nil, err
	}
	if plain.Lyrics.LyricsBody == "" {
		return nil, fmt.Errorf("track %s: %w", id, provider.ErrNotFound)
	}
	return &provider.Result{
		PlainText:    plain.Lyrics.LyricsBody,
		ProviderName: c.GetProviderName(),
	}, nil
}

// call 发起一次API调用，处理usertoken获取与401后的令牌刷新重试
func (c *Client) call(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.getToken(timeoutCtx)
		if err != nil {
			return err
		}

		status, body, err := c.doRequest(timeoutCtx, endpoint, params, token)
		if err != nil {
			return fmt.Errorf("%s: %w", endpoint, err)
		}

		if status == http.StatusUnauthorized {
			// 令牌失效：清除缓存令牌重试一次
			log.Printf("WARN: [Musixmatch] Token expired, refreshing (attempt %d/2)", attempt+1)
			c.clearToken()
			continue
		}
		if status != http.StatusOK {
			return fmt.Errorf("%s returned status %d: %w", endpoint, status, provider.ErrUnavailable)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: %v: %w", endpoint, err, provider.ErrParseFailure)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", endpoint, provider.ErrAuthExpired)
}

// doRequest 发起请求。外层header的status_code优先于HTTP状态码
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, token string) (int, json.RawMessage, error) {
	query := url.Values{}
	for k, vs := range params {
		query[k] = vs
	}
	query.Set("app_id", defaultAppID)
	query.Set("format", "json")
	if token != "" {
		query.Set("usertoken", token)
	}

	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%v: %w", err, provider.ErrUnavailable)
	}
	defer resp.Body.Close()

	var msg apiMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return 0, nil, fmt.Errorf("%v: %w", err, provider.ErrParseFailure)
	}

	status := msg.Message.Header.StatusCode
	if status == 0 {
		status = resp.StatusCode
	}
	return status, msg.Message.Body, nil
}

// getToken 获取匿名usertoken，获取成功后缓存复用
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	status, body, err := c.doRequest(ctx, "token.get", url.Values{}, "")
	if err != nil {
		return "", fmt.Errorf("token.get: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token.get returned status %d: %w", status, provider.ErrUnavailable)
	}

	var tb tokenBody
	if err := json.Unmarshal(body, &tb); err != nil {
		return "", fmt.Errorf("token.get: %v: %w", err, provider.ErrParseFailure)
	}
	if tb.UserToken == "" {
		return "", fmt.Errorf("token.get returned empty token: %w", provider.ErrAuthExpired)
	}

	c.token = tb.UserToken
	log.Printf("INFO: [Musixmatch] Obtained new usertoken")
	return c.token, nil
}

func (c *Client) clearToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}
