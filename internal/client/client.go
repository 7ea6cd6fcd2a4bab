// Package client is the CLI's typed wrapper around the backend API. It also
// satisfies the session's Persister and PriceSource interfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/market"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// StatusError carries the HTTP status so callers can branch on 401s and 404s
// without parsing the message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, username, password string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/api/signup", map[string]any{
		"username": username,
		"password": password,
	}, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/api/login", map[string]any{
		"username": username,
		"password": password,
	}, nil)
}

func (c *Client) FetchBalance(ctx context.Context, username string) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/api/user/"+url.PathEscape(username), nil, &out)
	return out.Balance, err
}

func (c *Client) UpdateBalance(ctx context.Context, username string, newBalance float64) error {
	return c.jsonRequest(ctx, http.MethodPost, "/api/update-balance", map[string]any{
		"username":   username,
		"newBalance": newBalance,
	}, nil)
}

func (c *Client) FetchPortfolio(ctx context.Context, username string) (map[string]int64, error) {
	var out struct {
		Portfolio map[string]int64 `json:"portfolio"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/api/portfolio/"+url.PathEscape(username), nil, &out)
	return out.Portfolio, err
}

func (c *Client) SavePortfolio(ctx context.Context, username string, portfolio map[string]int64) error {
	return c.jsonRequest(ctx, http.MethodPut, "/api/portfolio/"+url.PathEscape(username), map[string]any{
		"portfolio": portfolio,
	}, nil)
}

func (c *Client) Leaderboard(ctx context.Context) ([]account.LeaderboardEntry, error) {
	var out []account.LeaderboardEntry
	err := c.jsonRequest(ctx, http.MethodGet, "/api/leaderboard", nil, &out)
	return out, err
}

func (c *Client) ListStocks(ctx context.Context) ([]market.Stock, error) {
	var out struct {
		Stocks []market.Stock `json:"stocks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/api/stocks", nil, &out)
	return out.Stocks, err
}

func (c *Client) StockDetail(ctx context.Context, ticker string) (market.StockDetail, error) {
	var out market.StockDetail
	err := c.jsonRequest(ctx, http.MethodGet, "/api/stocks/"+url.PathEscape(ticker), nil, &out)
	return out, err
}

// FetchPrices implements session.PriceSource.
func (c *Client) FetchPrices(ctx context.Context) (map[string]market.Quote, error) {
	var out map[string]market.Quote
	err := c.jsonRequest(ctx, http.MethodGet, "/api/prices", nil, &out)
	return out, err
}

func (c *Client) News(ctx context.Context) ([]market.NewsItem, error) {
	var out []market.NewsItem
	err := c.jsonRequest(ctx, http.MethodGet, "/api/news", nil, &out)
	return out, err
}

// PersistBalance implements session.Persister.
func (c *Client) PersistBalance(ctx context.Context, username string, balanceCents int64) error {
	return c.UpdateBalance(ctx, username, account.CentsToDollars(balanceCents))
}

// PersistPortfolio implements session.Persister.
func (c *Client) PersistPortfolio(ctx context.Context, username string, portfolio map[string]int64) error {
	return c.SavePortfolio(ctx, username, portfolio)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
