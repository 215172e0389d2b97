package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Factory opens a backend for a DSN.
type Factory func(ctx context.Context, opts Options) (Remote, error)

var registry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// Register makes a backend available under scheme. Later registrations
// replace earlier ones.
func Register(scheme string, factory Factory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[scheme] = factory
}

func lookup(scheme string) (Factory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok := registry.factories[normalizeScheme(scheme)]
	return factory, ok
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}

func init() {
	Register("sqlite", openSQLite)
	Register("file", openSQLite)
	Register("memory", openMemory)
	Register("mem", openMemory)
	Register("postgres", openPostgres)
	Register("postgresql", openPostgres)
	Register("firestore", openFirestore)
	Register("redis", openRedis)
	Register("rediss", openRedis)
}

// Open builds the backend named by opts.DSN. A DSN without a scheme is a
// path to a sqlite database.
func Open(ctx context.Context, opts Options) (Remote, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("store dsn is empty")
	}
	opts.DSN = dsn
	scheme := dsnScheme(dsn)
	if scheme == "" {
		scheme = "sqlite"
	}
	factory, ok := lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return factory(ctx, opts)
}

// dsnScheme returns the scheme of dsn, treating Windows drive letters and
// bare paths as scheme-less.
func dsnScheme(dsn string) string {
	idx := strings.Index(dsn, ":")
	if idx <= 1 {
		return ""
	}
	scheme := dsn[:idx]
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return ""
		}
	}
	return normalizeScheme(scheme)
}

// dsnPath extracts a filesystem path from "sqlite:///abs", "sqlite:rel" or a
// bare path.
func dsnPath(dsn string) (string, error) {
	if dsnScheme(dsn) == "" {
		return dsn, nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	path := parsed.Path
	if path == "" {
		path = parsed.Opaque
	}
	if parsed.Host != "" {
		path = parsed.Host + path
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("dsn %q has no path", dsn)
	}
	return path, nil
}

// dsnHost returns the host part of dsn, used by backends that address a
// project or namespace rather than a path.
func dsnHost(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	if parsed.Host != "" {
		return parsed.Host
	}
	return strings.Trim(parsed.Opaque+parsed.Path, "/")
}
