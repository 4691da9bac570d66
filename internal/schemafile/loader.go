package schemafile

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	logs "github.com/danmuck/binstruct/internal/logging"
)

const DefaultCacheSize = 64

type cacheKey struct {
	path    string
	modTime int64
	size    int64
}

// Loader compiles schema files and caches the results. Editing a file changes
// its key, so a stale registry is never returned.
type Loader struct {
	cache *lru.Cache[cacheKey, *Registry]
}

func NewLoader(size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *Registry](size)
	if err != nil {
		return nil, fmt.Errorf("schemafile: new loader: %w", err)
	}
	return &Loader{cache: cache}, nil
}

func (l *Loader) Load(path string) (*Registry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	key := cacheKey{path: abs, modTime: info.ModTime().UnixNano(), size: info.Size()}
	if reg, ok := l.cache.Get(key); ok {
		logs.Debugf("schemafile.Load cache hit path=%s", abs)
		return reg, nil
	}
	reg, err := Load(abs)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, reg)
	logs.Debugf("schemafile.Load compiled path=%s definitions=%d", abs, reg.Len())
	return reg, nil
}

func (l *Loader) Len() int { return l.cache.Len() }

func (l *Loader) Purge() { l.cache.Purge() }
