// Package search implements web-search providers for the scanner.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// Config controls the DuckDuckGo provider.
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// DuckDuckGo queries the DuckDuckGo HTML endpoint and scrapes ranked
// results from the response markup. The endpoint serves plain HTML
// without JavaScript, which keeps the provider dependency-free beyond
// an HTTP client and a parser.
type DuckDuckGo struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewDuckDuckGo builds a provider.
func NewDuckDuckGo(cfg Config, logger *zap.Logger) *DuckDuckGo {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuckDuckGo{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Search returns up to maxResults hits in provider order.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]scanner.SearchHit, error) {
	endpoint := d.cfg.Endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("close search response body", zap.Error(err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var hits []scanner.SearchHit
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		hits = append(hits, scanner.SearchHit{
			Title: strings.TrimSpace(anchor.Text()),
			URL:   unwrapRedirect(href),
			Body:  strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
		return maxResults <= 0 || len(hits) < maxResults
	})
	return hits, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<target> redirect
// links to the target URL.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	target := parsed.Query().Get("uddg")
	if target == "" {
		return href
	}
	return target
}
