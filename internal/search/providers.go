package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Result is one parsed search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider fetches and parses results from one search source.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// ErrBlocked marks a provider response that looks like bot interception
// rather than results.
var ErrBlocked = fmt.Errorf("provider blocked the request")

// MaxResults caps parsed results per provider.
const MaxResults = 8

// htmlProvider scrapes a search engine's HTML results page.
type htmlProvider struct {
	name      string
	buildURL  func(query string) string
	parse     func(doc *goquery.Document) []Result
	userAgent string
	client    *http.Client
}

func newScrapeClient(timeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return rc.StandardClient()
}

// NewPrimaryProvider scrapes the lightweight DuckDuckGo HTML endpoint.
func NewPrimaryProvider(base string, timeout time.Duration) Provider {
	if base == "" {
		base = "https://html.duckduckgo.com/html/"
	}
	return &htmlProvider{
		name: "duckduckgo",
		buildURL: func(query string) string {
			return base + "?q=" + url.QueryEscape(query)
		},
		parse:     parseDuckDuckGo,
		userAgent: scrapeUserAgent,
		client:    newScrapeClient(timeout),
	}
}

// NewSecondaryProvider scrapes Bing results as the fallback source.
func NewSecondaryProvider(base string, timeout time.Duration) Provider {
	if base == "" {
		base = "https://www.bing.com/search"
	}
	return &htmlProvider{
		name: "bing",
		buildURL: func(query string) string {
			return base + "?q=" + url.QueryEscape(query)
		},
		parse:     parseBing,
		userAgent: scrapeUserAgent,
		client:    newScrapeClient(timeout),
	}
}

const scrapeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func (p *htmlProvider) Name() string {
	return p.name
}

func (p *htmlProvider) Search(ctx context.Context, query string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.buildURL(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusAccepted {
		return nil, ErrBlocked
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", p.name, resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", p.name, err)
	}

	if looksBlocked(body) {
		return nil, ErrBlocked
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.name, err)
	}
	results := p.parse(doc)
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

// decodeBody unwraps gzip and converts the payload to UTF-8 using the
// detected charset.
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", err
		}
		defer gz.Close()
		reader = gz
	}

	raw, err := io.ReadAll(io.LimitReader(reader, 4<<20))
	if err != nil {
		return "", err
	}

	label := ""
	if det, err := chardet.NewTextDetector().DetectBest(raw); err == nil && det != nil {
		label = det.Charset
	}
	utf8Reader, err := charset.NewReaderLabel(label, strings.NewReader(string(raw)))
	if err != nil {
		return string(raw), nil
	}
	decoded, err := io.ReadAll(utf8Reader)
	if err != nil {
		return string(raw), nil
	}
	return string(decoded), nil
}

func looksBlocked(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "unusual traffic") ||
		strings.Contains(lower, "verify you are a human")
}

func parseDuckDuckGo(doc *goquery.Document) []Result {
	var results []Result
	doc.Find("div.result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		if title == "" || href == "" {
			return
		}
		results = append(results, Result{
			Title:   title,
			URL:     cleanRedirect(href),
			Snippet: snippet,
		})
	})
	return results
}

func parseBing(doc *goquery.Document) []Result {
	var results []Result
	doc.Find("li.b_algo").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("h2 a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(s.Find("p").First().Text())
		if title == "" || href == "" {
			return
		}
		results = append(results, Result{Title: title, URL: href, Snippet: snippet})
	})
	return results
}

// cleanRedirect unwraps the uddg redirect parameter on DuckDuckGo links.
func cleanRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return href
}
