// Package connstring implements the C2 Connection Template Resolver:
// rewriting "{vault:<path>}" placeholders in connection templates using a
// cached remote secret store (§4.2).
package connstring

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/ingestiond/internal/vaultclient"
)

const cacheTTL = 5 * time.Minute

var placeholderPattern = regexp.MustCompile(`\{vault:([^}]+)\}`)

// Resolver resolves "{vault:<path>}" tokens against a vaultclient.Client,
// with a process-wide cache (absolute TTL, single-flight per path).
type Resolver struct {
	client vaultclient.Client

	mu    sync.Mutex
	cache map[string]cacheEntry

	group singleflight.Group
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// New builds a Resolver backed by client.
func New(client vaultclient.Client) *Resolver {
	return &Resolver{
		client: client,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve rewrites every "{vault:<path>}" occurrence in template. If the
// template contains no such token, it is returned unchanged without any
// vault call.
func (r *Resolver) Resolve(ctx context.Context, template string) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	paths := make(map[string]struct{})
	for _, m := range matches {
		paths[template[m[2]:m[3]]] = struct{}{}
	}

	values := make(map[string]string, len(paths))
	for path := range paths {
		value, err := r.fetch(ctx, path)
		if err != nil {
			return "", fmt.Errorf("resolving vault path %q: %w", path, err)
		}
		values[path] = value
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(tok string) string {
		sub := placeholderPattern.FindStringSubmatch(tok)
		return values[sub[1]]
	}), nil
}

func (r *Resolver) fetch(ctx context.Context, path string) (string, error) {
	if value, ok := r.cached(path); ok {
		return value, nil
	}

	result, err, _ := r.group.Do(path, func() (any, error) {
		if value, ok := r.cached(path); ok {
			return value, nil
		}
		value, err := r.client.GetSecret(ctx, path)
		if err != nil {
			return nil, err
		}
		r.store(path, value)
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (r *Resolver) cached(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[path]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (r *Resolver) store(path, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[path] = cacheEntry{value: value, expiresAt: time.Now().Add(cacheTTL)}
}
