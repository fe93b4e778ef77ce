package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source is a loaded document with its detected kind.
type Source struct {
	Locator string
	Text    string
	Kind    SourceKind

	// JSON is the ordered parse tree when Kind is KindJSON.
	JSON any
}

// Fetcher retrieves the body text behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DefaultUserAgent is sent by HTTPFetcher. Share pages often refuse non-browser agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher is a plain blocking GET with no retry.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher returns a fetcher bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}, UserAgent: DefaultUserAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("HTTPFetcher: build request: %w: %w", ErrSourceUnreadable, err)
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTPFetcher: GET %s: %w: %w", url, ErrSourceUnreadable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTPFetcher: GET %s: status %d: %w", url, resp.StatusCode, ErrSourceUnreadable)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("HTTPFetcher: read body: %w: %w", ErrSourceUnreadable, err)
	}
	return decodeText(b), nil
}

// IsURL reports whether locator names an HTTP(S) resource.
func IsURL(locator string) bool {
	l := strings.ToLower(strings.TrimSpace(locator))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// ReadSource loads a file or fetches a URL and detects its kind.
func ReadSource(ctx context.Context, locator string, fetcher Fetcher) (Source, error) {
	var text string
	if IsURL(locator) {
		if fetcher == nil {
			return Source{}, fmt.Errorf("ReadSource: %s: no fetcher configured: %w", locator, ErrSourceUnreadable)
		}
		body, err := fetcher.Fetch(ctx, strings.TrimSpace(locator))
		if err != nil {
			return Source{}, fmt.Errorf("ReadSource: %w", err)
		}
		text = body
	} else {
		b, err := os.ReadFile(locator)
		if err != nil {
			return Source{}, fmt.Errorf("ReadSource: %w: %w", ErrSourceUnreadable, err)
		}
		text = decodeText(b)
	}
	return DetectKind(locator, text), nil
}

// DetectKind classifies text: JSON if it parses, HTML if it is structurally markup, else text.
func DetectKind(locator, text string) Source {
	src := Source{Locator: locator, Text: text, Kind: KindText}
	trimmed := strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '"') {
		if root, err := ParseOrderedJSON([]byte(trimmed)); err == nil {
			src.Kind = KindJSON
			src.JSON = root
			return src
		}
	}
	if looksLikeHTML(text) {
		src.Kind = KindHTML
	}
	return src
}

var (
	documentOpeners = []string{"<!doctype html", "<html", "<head", "<body"}
	elementTags     = []string{"div", "p", "span", "script", "article", "main", "section", "table"}
)

// looksLikeHTML reports whether text is markup rather than prose that mentions a tag. A
// document opener or a leading tag is enough; otherwise an element must also be closed.
func looksLikeHTML(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(text, "\ufeff")))
	if strings.HasPrefix(lower, "<") && len(lower) > 1 && (isASCIILetter(lower[1]) || lower[1] == '!') {
		return true
	}
	for _, o := range documentOpeners {
		if strings.Contains(lower, o) {
			return true
		}
	}
	for _, tag := range elementTags {
		if !strings.Contains(lower, "</"+tag+">") {
			continue
		}
		if strings.Contains(lower, "<"+tag+">") || strings.Contains(lower, "<"+tag+" ") {
			return true
		}
	}
	return false
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// decodeText decodes bytes as UTF-8, replacing invalid sequences with U+FFFD.
func decodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
