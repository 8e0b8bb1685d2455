package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"lyricsync/pkg/provider"
)

// NeteaseSearchResponse 网易云搜索API响应
type NeteaseSearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Duration int `json:"duration"` // 毫秒
		} `json:"songs"`
	} `json:"result"`
}

// NeteaseLyricResponse 网易云歌词API响应
type NeteaseLyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient *http.Client
	searchURL  string
	lyricURL   string
	cookie     string
}

// NewClient 创建新的网易云音乐客户端
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		searchURL:  "https://music.163.com/api/search/get/web",
		lyricURL:   "http://music.163.com/api/song/lyric",
		cookie:     os.Getenv("NETEASE_COOKIE"),
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

// Search 搜索歌曲
func (c *Client) Search(ctx context.Context, query string) ([]provider.Candidate, error) {
	searchURL := fmt.Sprintf("%s?csrf_token=hlpretag&hlposttag=&s=%s&type=1&limit=100", c.searchURL, url.QueryEscape(query))
	log.Printf("INFO: [NetEase] Searching with URL: %s", searchURL)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API request failed with status %d", resp.StatusCode)
	}

	var searchResp NeteaseSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	candidates := make([]provider.Candidate, 0, len(searchResp.Result.Songs))
	for _, song := range searchResp.Result.Songs {
		artist := ""
		if len(song.Artists) > 0 {
			artist = song.Artists[0].Name
		}
		candidates = append(candidates, provider.Candidate{
			ID:         strconv.Itoa(song.ID),
			TrackName:  song.Name,
			ArtistName: artist,
			Duration:   float64(song.Duration) / 1000,
			// 网易云歌曲绝大多数带LRC，但搜索结果中无法确认
			HasSynced: false,
		})
	}
	return candidates, nil
}

// FetchLyrics 获取歌词，同时返回翻译歌词（如果有）
func (c *Client) FetchLyrics(ctx context.Context, id string) (*provider.Result, error) {
	lyricURL := fmt.Sprintf("%s?os=pc&id=%s&lv=-1&kv=-1&tv=-1", c.lyricURL, url.QueryEscape(id))
	log.Printf("INFO: [NetEase] Fetching lyrics with URL: %s", lyricURL)

	req, err := http.NewRequestWithContext(ctx, "GET", lyricURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lyric request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send lyric request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lyric API request failed with status %d", resp.StatusCode)
	}

	var lyricResp NeteaseLyricResponse
	if err := json.NewDecoder(resp.Body).Decode(&lyricResp); err != nil {
		return nil, fmt.Errorf("failed to decode lyric response: %w", err)
	}

	if lyricResp.Lrc.Lyric == "" {
		return nil, fmt.Errorf("no lyrics for song %s", id)
	}

	return &provider.Result{
		SyncedText:     lyricResp.Lrc.Lyric,
		TranslatedText: lyricResp.Tlyric.Lyric,
		ProviderName:   c.GetProviderName(),
	}, nil
}
