package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"lyricsync/internal/lyricscache"
	"lyricsync/pkg/provider"
)

type mockProvider struct {
	name        string
	searchFn    func(ctx context.Context, query string) ([]provider.Candidate, error)
	fetchFn     func(ctx context.Context, id string) (*provider.Result, error)
	searchCalls atomic.Int32
}

func (m *mockProvider) Search(ctx context.Context, query string) ([]provider.Candidate, error) {
	m.searchCalls.Add(1)
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(ctx, query)
}

func (m *mockProvider) FetchLyrics(ctx context.Context, id string) (*provider.Result, error) {
	if m.fetchFn == nil {
		return nil, provider.ErrNotFound
	}
	return m.fetchFn(ctx, id)
}

func (m *mockProvider) GetProviderName() string { return m.name }

const (
	lineSyncedLRC = "[00:01.00] Hello\n[00:03.50] World"
	wordSyncedLRC = "[00:01.00] <00:01.00>Hello <00:01.50>world\n[00:03.50] <00:03.50>Good <00:04.00>bye"
)

func singleCandidate(name string) func(ctx context.Context, query string) ([]provider.Candidate, error) {
	return func(ctx context.Context, query string) ([]provider.Candidate, error) {
		return []provider.Candidate{{ID: "1", TrackName: name, ArtistName: "Tester", HasSynced: true}}, nil
	}
}

func syncedResult(name, lrcText string) func(ctx context.Context, id string) (*provider.Result, error) {
	return func(ctx context.Context, id string) (*provider.Result, error) {
		return &provider.Result{SyncedText: lrcText, ProviderName: name}, nil
	}
}

// collect 读取通道直到关闭，带超时保护
func collect(t *testing.T, ch <-chan Update) []Update {
	t.Helper()
	var updates []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("resolve channel did not close")
		}
	}
}

func newTestCache() *lyricscache.Cache {
	return lyricscache.New(context.Background())
}

func TestResolveCacheHit(t *testing.T) {
	fast := &mockProvider{name: "fast"}
	cache := newTestCache()
	cache.Set("hello artist", lyricscache.Entry{
		SyncedText:   lineSyncedLRC,
		ProviderName: "fast",
	})

	p := New([]provider.LyricsAPI{fast}, cache)
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if !updates[0].FromCache {
		t.Error("expected FromCache=true")
	}
	if len(updates[0].Lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(updates[0].Lines))
	}
	if fast.searchCalls.Load() != 0 {
		t.Errorf("cache hit should skip providers, got %d search calls", fast.searchCalls.Load())
	}
}

func TestResolveFastProvider(t *testing.T) {
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("fast", wordSyncedLRC),
	}
	cache := newTestCache()

	p := New([]provider.LyricsAPI{fast}, cache)
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.FromCache || u.Upgraded {
		t.Error("fresh lookup should not be FromCache or Upgraded")
	}
	if u.ProviderName != "fast" {
		t.Errorf("ProviderName = %q, want fast", u.ProviderName)
	}
	if !u.Lines[0].HasWordTiming() {
		t.Error("expected word timing from enhanced lrc")
	}

	// 结果应已进入缓存，重复解析不再查网络
	fast.searchCalls.Store(0)
	updates = collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))
	if len(updates) != 1 || !updates[0].FromCache {
		t.Error("second resolve should hit cache")
	}
	if fast.searchCalls.Load() != 0 {
		t.Error("second resolve should not query providers")
	}
}

func TestResolveUpgrade(t *testing.T) {
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("fast", lineSyncedLRC),
	}
	rich := &mockProvider{
		name:     "rich",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("rich", wordSyncedLRC),
	}
	cache := newTestCache()

	p := New([]provider.LyricsAPI{fast, rich}, cache)
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 2 {
		t.Fatalf("expected fast update then upgrade, got %d", len(updates))
	}
	if updates[0].ProviderName != "fast" || updates[0].Upgraded {
		t.Errorf("first update should be fast result, got %+v", updates[0])
	}
	if updates[1].ProviderName != "rich" || !updates[1].Upgraded {
		t.Errorf("second update should be upgrade, got %+v", updates[1])
	}
	if !updates[1].Lines[0].HasWordTiming() {
		t.Error("upgraded lines should carry word timing")
	}

	// 升级结果应覆盖缓存
	entry, ok := cache.Get("hello artist")
	if !ok || entry.ProviderName != "rich" {
		t.Errorf("cache should hold upgraded result, got %+v", entry)
	}
}

func TestResolveUpgradeOverwritesFastCacheKey(t *testing.T) {
	// 快速结果缓存在第一条策略键下，升级结果由后面的策略匹配到。
	// 两个键都必须换成升级结果，否则下次解析会先命中弱结果
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("fast", lineSyncedLRC),
	}
	rich := &mockProvider{
		name: "rich",
		searchFn: func(ctx context.Context, query string) ([]provider.Candidate, error) {
			if query != "Hello" {
				return nil, nil
			}
			return []provider.Candidate{{ID: "1", TrackName: "Hello", ArtistName: "Tester", HasSynced: true}}, nil
		},
		fetchFn: syncedResult("rich", wordSyncedLRC),
	}
	cache := newTestCache()

	p := New([]provider.LyricsAPI{fast, rich}, cache)
	req := Request{Title: "Artist - Hello", Channel: "Artist", VideoID: "v1"}

	updates := collect(t, p.Resolve(context.Background(), req))
	if len(updates) != 2 || !updates[1].Upgraded {
		t.Fatalf("expected fast update then upgrade, got %+v", updates)
	}

	for _, key := range []string{"hello artist", "hello"} {
		entry, ok := cache.Get(key)
		if !ok || entry.ProviderName != "rich" {
			t.Errorf("cache key %q should hold the upgraded result, got %+v", key, entry)
		}
	}

	updates = collect(t, p.Resolve(context.Background(), req))
	if len(updates) != 1 || !updates[0].FromCache {
		t.Fatalf("second resolve should hit cache, got %+v", updates)
	}
	if updates[0].ProviderName != "rich" {
		t.Errorf("cache served provider %q, want the upgraded rich result", updates[0].ProviderName)
	}
	if len(updates[0].Lines) == 0 || !updates[0].Lines[0].HasWordTiming() {
		t.Error("word timing lost on the cached upgrade result")
	}
}

func TestResolveNoUpgradeWhenAlreadyRich(t *testing.T) {
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("fast", wordSyncedLRC),
	}
	rich := &mockProvider{name: "rich"}

	p := New([]provider.LyricsAPI{fast, rich}, newTestCache())
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if rich.searchCalls.Load() != 0 {
		t.Error("secondary should not be queried when fast result already has word timing")
	}
}

func TestResolveFailover(t *testing.T) {
	fast := &mockProvider{
		name: "fast",
		searchFn: func(ctx context.Context, query string) ([]provider.Candidate, error) {
			return nil, provider.ErrUnavailable
		},
	}
	secondary := &mockProvider{
		name:     "secondary",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("secondary", lineSyncedLRC),
	}

	p := New([]provider.LyricsAPI{fast, secondary}, newTestCache())
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].ProviderName != "secondary" {
		t.Errorf("ProviderName = %q, want secondary", updates[0].ProviderName)
	}
	if updates[0].Upgraded {
		t.Error("failover without a fast result is not an upgrade")
	}
	if updates[0].Err != nil {
		t.Errorf("unexpected error: %v", updates[0].Err)
	}
}

func TestResolveAuthExpiredSkipsProvider(t *testing.T) {
	fast := &mockProvider{
		name: "fast",
		searchFn: func(ctx context.Context, query string) ([]provider.Candidate, error) {
			return nil, provider.ErrAuthExpired
		},
	}
	secondary := &mockProvider{
		name:     "secondary",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("secondary", lineSyncedLRC),
	}

	p := New([]provider.LyricsAPI{fast, secondary}, newTestCache())
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	// 认证失败后不应继续用其余策略轰炸该提供商
	if fast.searchCalls.Load() != 1 {
		t.Errorf("auth-expired provider called %d times, want 1", fast.searchCalls.Load())
	}
	if len(updates) != 1 || updates[0].ProviderName != "secondary" {
		t.Fatalf("expected secondary result, got %+v", updates)
	}
}

func TestResolveAllFail(t *testing.T) {
	failing := &mockProvider{
		name: "fast",
		searchFn: func(ctx context.Context, query string) ([]provider.Candidate, error) {
			return nil, provider.ErrUnavailable
		},
	}

	p := New([]provider.LyricsAPI{failing}, newTestCache())
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if !errors.Is(updates[0].Err, ErrNoMatchFound) {
		t.Errorf("Err = %v, want ErrNoMatchFound", updates[0].Err)
	}
	if updates[0].Lines != nil {
		t.Error("failed resolve should carry no lines")
	}
}

func TestResolveQueryTooShort(t *testing.T) {
	fast := &mockProvider{name: "fast"}

	p := New([]provider.LyricsAPI{fast}, newTestCache())
	updates := collect(t, p.Resolve(context.Background(), Request{Title: "x", VideoID: "v1"}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if !errors.Is(updates[0].Err, ErrQueryTooShort) {
		t.Errorf("Err = %v, want ErrQueryTooShort", updates[0].Err)
	}
	if fast.searchCalls.Load() != 0 {
		t.Error("no provider should be queried without strategies")
	}
}

func TestResolvePlainOnlyNotCached(t *testing.T) {
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn: func(ctx context.Context, id string) (*provider.Result, error) {
			return &provider.Result{PlainText: "Hello\nWorld", ProviderName: "fast"}, nil
		},
	}
	cache := newTestCache()

	p := New([]provider.LyricsAPI{fast}, cache)
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].PlainText == "" {
		t.Error("plain lyrics should surface in PlainText")
	}
	if cache.Len() != 0 {
		t.Errorf("plain-only results must not be cached, cache has %d entries", cache.Len())
	}
}

func TestResolveStaleGenerationDiscarded(t *testing.T) {
	release := make(chan struct{})
	slow := &mockProvider{
		name: "fast",
		searchFn: func(ctx context.Context, query string) ([]provider.Candidate, error) {
			<-release
			return []provider.Candidate{{ID: "1", TrackName: "Hello", ArtistName: "Tester", HasSynced: true}}, nil
		},
		fetchFn: syncedResult("fast", lineSyncedLRC),
	}

	p := New([]provider.LyricsAPI{slow}, newTestCache())
	first := p.Resolve(context.Background(), Request{Title: "Artist - Hello", Channel: "Artist", VideoID: "v1"})
	second := p.Resolve(context.Background(), Request{Title: "Artist - World", Channel: "Artist", VideoID: "v2"})
	close(release)

	firstUpdates := collect(t, first)
	for _, u := range firstUpdates {
		if u.Err == nil {
			t.Errorf("stale generation leaked a result: %+v", u)
		}
	}

	secondUpdates := collect(t, second)
	if len(secondUpdates) == 0 {
		t.Fatal("current generation produced no updates")
	}
	for _, u := range secondUpdates {
		if u.VideoID != "v2" {
			t.Errorf("update for wrong video: %+v", u)
		}
	}
}

type fakeTranslator struct{ calls atomic.Int32 }

func (f *fakeTranslator) TranslateText(text string) (string, error) {
	f.calls.Add(1)
	return "译:" + text, nil
}

func TestResolveTranslationAugmentation(t *testing.T) {
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn:  syncedResult("fast", wordSyncedLRC),
	}
	translator := &fakeTranslator{}

	p := New([]provider.LyricsAPI{fast}, newTestCache(), WithTranslator(translator))
	updates := collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if len(updates) != 2 {
		t.Fatalf("expected lyrics update then translation, got %d", len(updates))
	}
	if !updates[1].Translated {
		t.Error("expected Translated=true on final update")
	}
	for _, line := range updates[1].Lines {
		if line.Translation == "" {
			t.Errorf("line %q missing translation", line.Text)
		}
	}
}

func TestResolveTranslationSkipsExisting(t *testing.T) {
	withTranslation := "[00:01.00] Hello\n[00:03.50] World"
	fast := &mockProvider{
		name:     "fast",
		searchFn: singleCandidate("Hello"),
		fetchFn: func(ctx context.Context, id string) (*provider.Result, error) {
			return &provider.Result{
				SyncedText:     withTranslation,
				TranslatedText: "[00:01.00] 你好\n[00:03.50] 世界",
				ProviderName:   "fast",
			}, nil
		},
	}
	translator := &fakeTranslator{}

	p := New([]provider.LyricsAPI{fast}, newTestCache(), WithTranslator(translator))
	collect(t, p.Resolve(context.Background(), Request{
		Title: "Artist - Hello", Channel: "Artist", VideoID: "v1",
	}))

	if translator.calls.Load() != 0 {
		t.Errorf("translator called %d times for already translated lyrics", translator.calls.Load())
	}
}
