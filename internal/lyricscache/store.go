package lyricscache

import (
	"context"
	"os"
	"path/filepath"

	"lyricsync/pkg/fileutil"
	"lyricsync/pkg/redis"
)

// cacheKey 整个缓存在Redis中的键
const cacheKey = "lyricsync:cache"

// RedisStore 把缓存blob存入Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建Redis持久化后端
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	return s.client.GetBytes(ctx, cacheKey)
}

func (s *RedisStore) Save(ctx context.Context, blob []byte) error {
	return s.client.Set(ctx, cacheKey, blob)
}

// FileStore 把缓存blob写入本地文件，Redis不可用时的兜底
type FileStore struct {
	path string
}

// NewFileStore 创建文件持久化后端，目录不存在时自动创建
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return blob, err
}

func (s *FileStore) Save(ctx context.Context, blob []byte) error {
	return fileutil.WriteFileOverwrite(s.path, blob, 0644)
}
