package driver

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"arm64gen/internal/backend/arm64"
	"arm64gen/internal/linear"
	"arm64gen/internal/project"
	"arm64gen/internal/version"
)

// cacheSchemaVersion is bumped when CacheEntry changes shape.
const cacheSchemaVersion uint16 = 1

// Cache keeps emitted assembly on disk, keyed by the unit contents and the
// options it was emitted with. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// CacheEntry is the stored payload of one unit.
type CacheEntry struct {
	Schema    uint16 `msgpack:"schema"`
	Unit      string `msgpack:"unit"`
	Asm       string `msgpack:"asm"`
	Frames    int    `msgpack:"frames"`
	Functions int    `msgpack:"functions"`
}

// OpenCache opens (creating if needed) a cache rooted at dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// OpenUserCache opens the cache under $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func OpenUserCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenCache(filepath.Join(base, app))
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// CacheKey derives the key of a unit: the hash of its encoded form, of the
// emitter options and of the tool version, so a new emitter never serves
// stale assembly.
func CacheKey(u *linear.Unit, opts arm64.Options) (project.Digest, error) {
	var buf bytes.Buffer
	if err := linear.EncodeUnit(&buf, u); err != nil {
		return project.Digest{}, err
	}
	optBytes, err := msgpack.Marshal(&opts)
	if err != nil {
		return project.Digest{}, err
	}
	return project.Combine(
		project.HashBytes(buf.Bytes()),
		project.HashBytes(optBytes),
		project.HashBytes([]byte(version.Version)),
	), nil
}

func (c *Cache) pathFor(key project.Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "asm", hexKey[:2], hexKey+".mp")
}

// Put stores e under key. The file is written to a temporary name and
// renamed, so readers never see a partial entry.
func (c *Cache) Put(key project.Digest, e *CacheEntry) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	stored := *e
	stored.Schema = cacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(&stored); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get loads the entry of key. A missing entry or one written with another
// schema is a miss, not an error.
func (c *Cache) Get(key project.Digest) (*CacheEntry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var e CacheEntry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	if e.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// переименуем каталог, чтобы параллельный Open не увидел полуудалённое дерево
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
