package calsync

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/edusis/campuscal/internal/calendar"
)

// CompositeProvider lists several providers as one. Pages are walked member
// by member and records whose id was already returned during the current
// listing are dropped. A failing member fails the whole listing.
type CompositeProvider struct {
	providers []Provider

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{providers: providers}
}

func (c *CompositeProvider) Add(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = append(c.providers, p)
}

func (c *CompositeProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.providers)
}

func (c *CompositeProvider) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

func (c *CompositeProvider) Authenticate(ctx context.Context) error {
	for _, p := range c.members() {
		if err := p.Authenticate(ctx); err != nil {
			return errors.Wrap(err, p.Name())
		}
	}
	return nil
}

// ListEvents walks the members in order. The page token is
// "<member index>:<member token>".
func (c *CompositeProvider) ListEvents(ctx context.Context, rng calendar.DateRange, pageToken string) (Page, error) {
	members := c.members()
	if len(members) == 0 {
		return Page{}, nil
	}

	idx, inner, err := splitToken(pageToken)
	if err != nil {
		return Page{}, err
	}
	if idx >= len(members) {
		return Page{}, MalformedError("page token %q is out of range", pageToken)
	}

	c.mu.Lock()
	if pageToken == "" {
		c.seen = make(map[string]struct{})
	}
	c.mu.Unlock()

	p := members[idx]
	page, err := p.ListEvents(ctx, rng, inner)
	if err != nil {
		return Page{}, errors.Wrap(err, p.Name())
	}

	c.mu.Lock()
	out := Page{Records: make([]Record, 0, len(page.Records))}
	for _, rec := range page.Records {
		if _, dup := c.seen[rec.ID]; dup {
			continue
		}
		c.seen[rec.ID] = struct{}{}
		out.Records = append(out.Records, rec)
	}
	c.mu.Unlock()

	switch {
	case page.NextPageToken != "":
		out.NextPageToken = strconv.Itoa(idx) + ":" + page.NextPageToken
	case idx+1 < len(members):
		out.NextPageToken = strconv.Itoa(idx+1) + ":"
	}
	return out, nil
}

// WatchPaths collects the paths of every file-backed member.
func (c *CompositeProvider) WatchPaths() []string {
	var paths []string
	for _, p := range c.members() {
		if w, ok := p.(Watchable); ok {
			paths = append(paths, w.WatchPaths()...)
		}
	}
	return paths
}

func (c *CompositeProvider) members() []Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Provider(nil), c.providers...)
}

func splitToken(tok string) (int, string, error) {
	if tok == "" {
		return 0, "", nil
	}
	head, rest, ok := strings.Cut(tok, ":")
	if !ok {
		return 0, "", MalformedError("page token %q", tok)
	}
	idx, err := strconv.Atoi(head)
	if err != nil || idx < 0 {
		return 0, "", MalformedError("page token %q", tok)
	}
	return idx, rest, nil
}
