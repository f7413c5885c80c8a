package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate evaluates robots.txt rules, caching them per host for the
// lifetime of the gate. Errors fetching robots.txt fail open.
type RobotsGate struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsGate creates a gate. A nil client uses http.DefaultClient.
func NewRobotsGate(client *http.Client, userAgent string) *RobotsGate {
	if client == nil {
		client = http.DefaultClient
	}
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether target may be fetched.
func (g *RobotsGate) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() {
		return false
	}

	rules, err := g.rules(ctx, u)
	if err != nil {
		return true
	}

	group := rules.FindGroup(g.userAgent)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *RobotsGate) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	g.mu.Lock()
	rules, ok := g.cache[host]
	g.mu.Unlock()
	if ok {
		return rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.cache[host] = data
	g.mu.Unlock()

	return data, nil
}
