// Package tracking looks up where a published post ranks in search results.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	"golang.org/x/net/html"
)

const (
	NaverSearchURL = "https://search.naver.com/search.naver"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	StatusFound    = "success"
	StatusNotFound = "not_found_top_100"
	StatusBlocked  = "blocked"
	StatusError    = "error"
	StatusInvalid  = "invalid_input"
)

var ErrInvalidInput = errors.New("keyword and url are required")

// resultClasses are the anchor classes of organic results on the unified
// search page.
var resultClasses = []string{"api_link_all", "link_tit", "total_tit"}

// NaverRank finds the 1-based position of a URL among the result links of
// a Naver unified search. Consecutive lookups are spaced by Interval.
type NaverRank struct {
	SearchURL string
	Client    *http.Client
	Interval  time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewNaverRank(client *http.Client, interval time.Duration) *NaverRank {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NaverRank{SearchURL: NaverSearchURL, Client: client, Interval: interval}
}

func (n *NaverRank) Rank(ctx context.Context, keyword, publishedURL string) (content.RankResult, error) {
	if strings.TrimSpace(keyword) == "" || publishedURL == "" {
		return content.RankResult{Rank: content.RankError, Status: StatusInvalid}, ErrInvalidInput
	}
	if err := n.wait(ctx); err != nil {
		return content.RankResult{Rank: content.RankError, Status: StatusError}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.SearchURL+"?query="+url.QueryEscape(keyword), nil)
	if err != nil {
		return content.RankResult{Rank: content.RankError, Status: StatusError}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.Client.Do(req)
	if err != nil {
		slog.Error("naver rank lookup failed", "keyword", keyword, "error", err)
		return content.RankResult{Rank: content.RankError, Status: StatusError}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return content.RankResult{Rank: content.RankError, Status: StatusBlocked}, fmt.Errorf("naver search returned %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return content.RankResult{Rank: content.RankError, Status: StatusError}, fmt.Errorf("parse search page: %w", err)
	}

	for i, href := range ResultLinks(doc) {
		if strings.Contains(href, publishedURL) {
			return content.RankResult{Rank: i + 1, Status: StatusFound}, nil
		}
	}
	return content.RankResult{Rank: content.RankNotFound, Status: StatusNotFound}, nil
}

func (n *NaverRank) wait(ctx context.Context) error {
	if n.Interval <= 0 {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if d := n.Interval - time.Since(n.last); d > 0 && !n.last.IsZero() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	n.last = time.Now()
	return nil
}

// ResultLinks returns the href of every result anchor in document order.
func ResultLinks(doc *html.Node) []string {
	var links []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" && isResultAnchor(node) {
			links = append(links, attr(node, "href"))
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func isResultAnchor(node *html.Node) bool {
	for _, class := range strings.Fields(attr(node, "class")) {
		for _, want := range resultClasses {
			if class == want {
				return true
			}
		}
	}
	return false
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
