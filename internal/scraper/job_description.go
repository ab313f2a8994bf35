package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

var ErrEmptyDescription = errors.New("job description is empty")

// Селекторы популярных job-бордов, затем общий fallback
var descriptionSelectors = []string{
	"[data-automation='jobAdDetails']",
	".jobs-description__content",
	".job-description",
	"#job-description",
	"[class*='description']",
	"article",
	"main",
	"body",
}

var spaces = regexp.MustCompile(`\s+`)

// JobDescriptionFetcher загружает текст вакансии по URL
type JobDescriptionFetcher struct {
	userAgent string
	timeout   time.Duration
	maxLength int
}

func NewJobDescriptionFetcher(userAgent string, timeout time.Duration) *JobDescriptionFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "Mozilla/5.0 (compatible; CVBuilderBot/1.0)"
	}
	return &JobDescriptionFetcher{userAgent: userAgent, timeout: timeout, maxLength: 20000}
}

func (f *JobDescriptionFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid job url %q", rawURL)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.UserAgent(f.userAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(f.timeout)

	found := make(map[string]string, len(descriptionSelectors))
	for _, sel := range descriptionSelectors {
		sel := sel
		c.OnHTML(sel, func(e *colly.HTMLElement) {
			if _, ok := found[sel]; ok {
				return
			}
			if text := normalizeText(e.DOM.Text()); text != "" {
				found[sel] = text
			}
		})
	}

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("fetch %s: status %d: %w", rawURL, r.StatusCode, err)
	})

	if err := c.Visit(u.String()); err != nil {
		return "", err
	}
	c.Wait()
	if reqErr != nil {
		return "", reqErr
	}

	for _, sel := range descriptionSelectors {
		if text, ok := found[sel]; ok {
			return f.truncate(text), nil
		}
	}
	return "", ErrEmptyDescription
}

func (f *JobDescriptionFetcher) truncate(s string) string {
	if len(s) <= f.maxLength {
		return s
	}
	cut := s[:f.maxLength]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

func normalizeText(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
