package lyricscache

import (
	"container/list"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "lyrics-cache").Logger()

const (
	// DefaultTTL 缓存条目有效期
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultMaxSize 缓存条目数上限
	DefaultMaxSize = 500
	// DefaultDebounce 持久化写入的防抖间隔
	DefaultDebounce = 2 * time.Second
)

// Entry 一条已解析的歌词缓存
type Entry struct {
	Key          string `json:"key"`
	SyncedText   string `json:"syncedText"`
	ProviderName string `json:"providerName"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	TimestampMs  int64  `json:"timestampMs"`
}

// Store 缓存的持久化后端。整个缓存作为一个序列化blob存取
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Cache 查询词到歌词的缓存：TTL过期 + LRU淘汰 + 防抖持久化。
// 内存中的map是权威数据，写后立即可读，不等待持久化落盘
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element // key -> *Entry元素
	order    *list.List               // LRU顺序，队首最旧
	ttl      time.Duration
	maxSize  int
	store    Store
	debounce time.Duration

	flushTimer *time.Timer
	dirty      bool
	closed     bool

	now func() time.Time // 测试注入时钟
}

// Option 缓存构造选项
type Option func(*Cache)

// WithTTL 设置条目有效期
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxSize 设置条目数上限
func WithMaxSize(n int) Option {
	return func(c *Cache) { c.maxSize = n }
}

// WithStore 设置持久化后端，nil表示仅内存
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithDebounce 设置持久化防抖间隔
func WithDebounce(d time.Duration) Option {
	return func(c *Cache) { c.debounce = d }
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New 创建缓存并从持久化后端加载。
// 持久化数据损坏或不可读时降级为空缓存，不阻塞解析
func New(ctx context.Context, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		ttl:      DefaultTTL,
		maxSize:  DefaultMaxSize,
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store != nil {
		c.load(ctx)
	}
	return c
}

// NormalizeKey 缓存键归一化：小写并去除首尾空白
func NormalizeKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get 返回未过期的条目。命中时刷新其LRU位置，过期条目直接删除
func (c *Cache) Get(query string) (*Entry, bool) {
	key := NormalizeKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if c.expired(entry) {
		c.removeLocked(key, elem)
		c.markDirtyLocked()
		return nil, false
	}

	c.order.MoveToBack(elem)
	copied := *entry
	return &copied, true
}

// Set 写入条目。先清除所有过期条目，再按LRU淘汰到容量以内
func (c *Cache) Set(query string, entry Entry) {
	key := NormalizeKey(query)
	entry.Key = key
	if entry.TimestampMs == 0 {
		entry.TimestampMs = c.now().UnixMilli()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpiredLocked()

	if elem, ok := c.entries[key]; ok {
		elem.Value = &entry
		c.order.MoveToBack(elem)
	} else {
		for len(c.entries) >= c.maxSize {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest.Value.(*Entry).Key, oldest)
		}
		c.entries[key] = c.order.PushBack(&entry)
	}

	c.markDirtyLocked()
}

// Len 当前条目数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush 立即持久化（忽略防抖）
func (c *Cache) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.store == nil || !c.dirty {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	blob := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.Save(ctx, blob); err != nil {
		logger.Error().Err(err).Msg("Failed to persist lyrics cache")
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
	}
}

// Close 停止防抖定时器并做最后一次持久化
func (c *Cache) Close(ctx context.Context) {
	c.mu.Lock()
	c.closed = true
	if c.flushTimer != nil {
		c.flushTimer.Stop()
		c.flushTimer = nil
	}
	c.mu.Unlock()

	c.Flush(ctx)
}

func (c *Cache) expired(entry *Entry) bool {
	return c.now().UnixMilli()-entry.TimestampMs >= c.ttl.Milliseconds()
}

func (c *Cache) purgeExpiredLocked() {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*Entry)
		if c.expired(entry) {
			c.removeLocked(entry.Key, elem)
		}
		elem = next
	}
}

func (c *Cache) removeLocked(key string, elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, key)
}

// markDirtyLocked 标记有未持久化的修改并安排防抖写入。
// 写入进行中再有修改时会重新安排，保证不丢更新
func (c *Cache) markDirtyLocked() {
	if c.store == nil {
		return
	}
	c.dirty = true
	if c.closed || c.flushTimer != nil {
		return
	}
	c.flushTimer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.flushTimer = nil
		c.mu.Unlock()
		c.Flush(context.Background())
	})
}

func (c *Cache) snapshotLocked() []byte {
	entries := make([]Entry, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, *elem.Value.(*Entry))
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to serialize lyrics cache")
		return []byte("[]")
	}
	return blob
}

// load 从持久化后端恢复，损坏的blob降级为空缓存
func (c *Cache) load(ctx context.Context) {
	blob, err := c.store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load lyrics cache, starting empty")
		return
	}
	if len(blob) == 0 {
		return
	}

	var entries []Entry
	if err := json.Unmarshal(blob, &entries); err != nil {
		logger.Warn().Err(err).Msg("Corrupt lyrics cache blob, starting empty")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range entries {
		entry := entries[i]
		if entry.Key == "" || c.expired(&entry) {
			continue
		}
		if len(c.entries) >= c.maxSize {
			break
		}
		c.entries[entry.Key] = c.order.PushBack(&entry)
	}
	logger.Info().Int("entries", len(c.entries)).Msg("Lyrics cache loaded")
}
