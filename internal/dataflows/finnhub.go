package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/FinSim/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client. An empty baseURL uses the
// public endpoint.
func NewFinnhubClient(apiKey, baseURL string) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
	}
}

func (fc *FinnhubClient) Name() string { return "finnhub" }

func (fc *FinnhubClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	if fc.apiKey == "" {
		return fmt.Errorf("finnhub: %w", ErrNoAPIKey)
	}
	params["token"] = fc.apiKey

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		rl := &RateLimitError{Provider: "finnhub"}
		if s, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
			rl.RetryAfter = time.Duration(s) * time.Second
		}
		return rl
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("finnhub %s: %w: status %d: %s", path, ErrBadResponse, resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("finnhub %s: parse response: %w", path, err)
	}
	return nil
}

type finnhubQuote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Quote returns the real-time quote. Finnhub answers unknown symbols with
// zeros, which is reported as ErrNoQuote.
func (fc *FinnhubClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	var q finnhubQuote
	if err := fc.get(ctx, "/quote", map[string]string{"symbol": symbol}, &q); err != nil {
		return models.Quote{}, err
	}
	if q.Current <= 0 {
		return models.Quote{}, fmt.Errorf("finnhub %s: %w", symbol, ErrNoQuote)
	}
	return models.Quote{
		Symbol:        symbol,
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		Current:       q.Current,
		PreviousClose: q.PreviousClose,
	}, nil
}

// Profile returns company profile data.
func (fc *FinnhubClient) Profile(ctx context.Context, symbol string) (CompanyProfile, error) {
	var p CompanyProfile
	err := fc.get(ctx, "/stock/profile2", map[string]string{"symbol": NormalizeSymbol(symbol)}, &p)
	return p, err
}

// BasicFinancials returns the metric map of /stock/metric.
func (fc *FinnhubClient) BasicFinancials(ctx context.Context, symbol string) (map[string]any, error) {
	var resp struct {
		Metric map[string]any `json:"metric"`
	}
	if err := fc.get(ctx, "/stock/metric", map[string]string{"symbol": NormalizeSymbol(symbol), "metric": "all"}, &resp); err != nil {
		return nil, err
	}
	if resp.Metric == nil {
		resp.Metric = map[string]any{}
	}
	return resp.Metric, nil
}

type finnhubNews struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// CompanyNews gets news articles for a specific company. Summaries are
// reduced to plain text.
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]NewsItem, error) {
	var raw []finnhubNews
	err := fc.get(ctx, "/company-news", map[string]string{
		"symbol": NormalizeSymbol(symbol),
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}, &raw)
	if err != nil {
		return nil, err
	}

	items := make([]NewsItem, 0, len(raw))
	for _, n := range raw {
		items = append(items, NewsItem{
			Headline:    PlainText(n.Headline),
			Summary:     PlainText(n.Summary),
			Source:      n.Source,
			URL:         n.URL,
			PublishedAt: time.Unix(n.DateTime, 0),
		})
	}
	return items, nil
}
