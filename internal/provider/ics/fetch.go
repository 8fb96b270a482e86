package ics

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// cacheEntry holds the validators and body of the last 200 response.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
}

// fetcher loads a feed from a URL or a local path. HTTP responses are
// cached in memory and revalidated with If-None-Match / If-Modified-Since.
type fetcher struct {
	client *http.Client
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func newFetcher(client *http.Client, log zerolog.Logger) *fetcher {
	return &fetcher{client: client, log: log, cache: make(map[string]cacheEntry)}
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "webcal://")
}

// localPath strips a file:// scheme.
func localPath(src string) string {
	if u, err := url.Parse(src); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return src
}

func (f *fetcher) fetch(ctx context.Context, src string) ([]byte, error) {
	if !isRemote(src) {
		body, err := os.ReadFile(localPath(src))
		return body, errors.Wrap(err, "read feed")
	}

	target := src
	if strings.HasPrefix(target, "webcal://") {
		target = "https://" + strings.TrimPrefix(target, "webcal://")
	}

	f.mu.Lock()
	cached, hasCache := f.cache[target]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if hasCache {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", redactURL(target))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "read response")
		}
		f.mu.Lock()
		f.cache[target] = cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
		}
		f.mu.Unlock()
		f.log.Debug().Str("url", redactURL(target)).Int("bytes", len(body)).Msg("ics fetched")
		return body, nil

	case http.StatusNotModified:
		if !hasCache {
			return nil, errors.New("received 304 Not Modified without a cached body")
		}
		f.log.Debug().Str("url", redactURL(target)).Msg("ics not modified, using cache")
		return cached.Body, nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.Errorf("fetch %s: %s", redactURL(target), resp.Status)

	default:
		return nil, errors.Errorf("fetch %s: unexpected status %s", redactURL(target), resp.Status)
	}
}

// redactURL keeps scheme and host only; private feed URLs carry tokens.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
