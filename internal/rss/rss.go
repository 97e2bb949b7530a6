package rss

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/devbot/internal/cache"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

const headlinesKey = "headlines"

// Headlines fetches fresh titles from a fixed feed list and keeps them for a
// while so that every blog request does not hit the network.
type Headlines struct {
	urls    []string
	limit   int
	maxAge  time.Duration
	timeout time.Duration
	parser  *gofeed.Parser
	cache   *cache.Cache[string, []string]
	log     *slog.Logger
}

func NewHeadlines(urls []string, limit int, refresh time.Duration, log *slog.Logger) *Headlines {
	if limit <= 0 {
		limit = 10
	}
	if refresh <= 0 {
		refresh = 30 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Headlines{
		urls:    urls,
		limit:   limit,
		maxAge:  72 * time.Hour,
		timeout: 15 * time.Second,
		parser:  gofeed.NewParser(),
		cache:   cache.New[string, []string](refresh),
		log:     log,
	}
}

// Latest returns up to limit recent headlines across all feeds in feed order.
// Feeds that fail are logged and skipped.
func (h *Headlines) Latest(ctx context.Context) []string {
	if len(h.urls) == 0 {
		return nil
	}
	if cached, ok := h.cache.Get(headlinesKey); ok {
		return cached
	}

	cutoff := time.Now().Add(-h.maxAge)
	seen := make(map[string]bool)
	var titles []string
	successCount := 0

	for _, url := range h.urls {
		if len(titles) >= h.limit {
			break
		}
		fctx, cancel := context.WithTimeout(ctx, h.timeout)
		feed, err := h.parser.ParseURLWithContext(url, fctx)
		cancel()
		if err != nil {
			h.log.Warn("Error parsing RSS", "url", url, "err", err)
			continue // Log error, but don't stop
		}
		successCount++

		for _, item := range feed.Items {
			if len(titles) >= h.limit {
				break
			}
			if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
				continue
			}
			title := PlainText(item.Title)
			key := strings.ToLower(title)
			if title == "" || seen[key] {
				continue
			}
			seen[key] = true
			titles = append(titles, title)
		}
	}

	h.log.Debug("Processed RSS feeds", "ok", successCount, "total", len(h.urls), "headlines", len(titles))
	if successCount > 0 {
		h.cache.Set(headlinesKey, titles)
	}
	return titles
}

// PlainText drops HTML markup and entities, collapsing whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
