package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/metrics"
	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/resilience"
)

const (
	endpointTopHeadlines = "top-headlines"
	endpointEverything   = "everything"
	endpointSources      = "top-headlines/sources"

	maxResponseBytes = 10 << 20
)

// HeadlinesParams are the query parameters of a top-headlines request.
type HeadlinesParams struct {
	Query   string
	Sources []string
	Page    int
}

// EverythingParams are the query parameters of an everything request.
// Zero dates are omitted.
type EverythingParams struct {
	Query   string
	Sources []string
	From    time.Time
	To      time.Time
	SortBy  string
	Page    int
}

// Client is the HTTP client for the provider API. All requests share one
// rate limiter and one circuit breaker.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	pageSize   int
	httpClient *http.Client
	limiter    *resilience.RateLimiter
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg *config.Config) *Client {
	p := cfg.Provider
	return &Client{
		baseURL:   strings.TrimRight(p.BaseURL, "/"),
		apiKey:    p.APIKey,
		userAgent: p.UserAgent,
		pageSize:  p.PageSize,
		httpClient: &http.Client{
			Timeout: p.HTTPTimeout,
		},
		limiter: resilience.NewRateLimiter(p.RequestsPerSecond, p.Burst),
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfigFrom("newsapi", p.Breaker)),
	}
}

// SetBaseURL points the client at another provider root. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

func (c *Client) TopHeadlines(ctx context.Context, p HeadlinesParams) (*Page, error) {
	params := url.Values{}
	if p.Query != "" {
		params.Set("q", p.Query)
	}
	if len(p.Sources) > 0 {
		params.Set("sources", strings.Join(p.Sources, ","))
	}
	c.setPaging(params, p.Page)

	var resp apiResponse
	if err := c.get(ctx, endpointTopHeadlines, params, &resp); err != nil {
		return nil, err
	}
	return toPage(resp, p.Sources), nil
}

func (c *Client) Everything(ctx context.Context, p EverythingParams) (*Page, error) {
	params := url.Values{}
	if p.Query != "" {
		params.Set("q", p.Query)
	}
	if len(p.Sources) > 0 {
		params.Set("sources", strings.Join(p.Sources, ","))
	}
	if !p.From.IsZero() {
		params.Set("from", query.FormatDate(p.From))
	}
	if !p.To.IsZero() {
		params.Set("to", query.FormatDate(p.To))
	}
	if p.SortBy != "" {
		params.Set("sortBy", p.SortBy)
	}
	c.setPaging(params, p.Page)

	var resp apiResponse
	if err := c.get(ctx, endpointEverything, params, &resp); err != nil {
		return nil, err
	}
	return toPage(resp, p.Sources), nil
}

// Sources lists the provider's source catalog.
func (c *Client) Sources(ctx context.Context) ([]ProviderSource, error) {
	var resp apiResponse
	if err := c.get(ctx, endpointSources, url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

func (c *Client) setPaging(params url.Values, page int) {
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(c.pageSize))
	}
}

// toPage converts the wire response. Articles without a source id inherit
// the requested id when exactly one source was asked for, so they still land
// in the right group.
func toPage(resp apiResponse, requested []string) *Page {
	page := &Page{
		TotalResults: resp.TotalResults,
		Articles:     make([]Article, 0, len(resp.Articles)),
	}
	for _, a := range resp.Articles {
		article := a.toArticle()
		if article.SourceID == "" && len(requested) == 1 {
			article.SourceID = requested[0]
		}
		page.Articles = append(page.Articles, article)
	}
	return page
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out *apiResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderError{Code: CodeNetwork, Message: "rate limiter wait aborted", Err: err}
	}

	start := time.Now()
	err := c.breaker.Execute(func() error {
		return c.do(ctx, endpoint, params, out)
	})
	if errors.Is(err, resilience.ErrOpen) {
		err = &ProviderError{Code: CodeCircuitOpen, Message: "provider temporarily unavailable", Err: err}
	}

	code := "ok"
	if err != nil {
		code = ErrorCode(err)
	}
	metrics.RecordProviderRequest(endpoint, code, time.Since(start))

	if err != nil {
		debuglog.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"code":     code,
		}).Warnf("provider request failed: %v", err)
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, out *apiResponse) error {
	reqURL := c.baseURL + "/" + endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &ProviderError{Code: CodeNetwork, Message: "creating request", Err: err}
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	debuglog.Debugf("GET %s?%s", c.baseURL+"/"+endpoint, params.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Code: CodeNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &ProviderError{Code: CodeNetwork, Message: "reading response", HTTPStatus: resp.StatusCode, Err: err}
	}

	decodeErr := json.Unmarshal(body, out)

	if resp.StatusCode == http.StatusTooManyRequests {
		perr := &ProviderError{Status: "error", Code: CodeRateLimited, Message: "too many requests", HTTPStatus: resp.StatusCode}
		if decodeErr == nil && out.Message != "" {
			perr.Message = out.Message
		}
		return perr
	}

	if decodeErr != nil {
		return &ProviderError{
			Code:       CodeMalformedResponse,
			Message:    fmt.Sprintf("decoding %s response", endpoint),
			HTTPStatus: resp.StatusCode,
			Err:        decodeErr,
		}
	}

	if out.Status != "ok" {
		code := out.Code
		if code == "" {
			code = CodeHTTP
		}
		return &ProviderError{Status: out.Status, Code: code, Message: out.Message, HTTPStatus: resp.StatusCode}
	}

	if resp.StatusCode >= 400 {
		return &ProviderError{Status: out.Status, Code: CodeHTTP, Message: http.StatusText(resp.StatusCode), HTTPStatus: resp.StatusCode}
	}

	return nil
}
