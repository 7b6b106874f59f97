// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package opac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/metrics"
	"github.com/tomtom215/readmark/internal/models"
)

const (
	loanHistoryPath = "/v1/patron/loan_histories"
	authHeaderName  = "X-Hw-ApiAuth"
)

var (
	// ErrUpstream reports a transport failure, a non-200 status or an
	// undecodable body.
	ErrUpstream = errors.New("library api unavailable")

	// ErrAPI reports a response whose code is non-zero.
	ErrAPI = errors.New("library api returned an error")
)

// HistorySource fetches a patron's loan history. Client and BreakerClient
// implement it.
type HistorySource interface {
	LoanHistory(ctx context.Context, readerID string, readerType models.ReaderType, maxPages, pageSize int) ([]models.LoanItem, error)
}

var _ HistorySource = (*Client)(nil)

// Client talks to the loan-history API.
type Client struct {
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client

	now   func() time.Time
	nonce func() string
}

type loanHistoryResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Items []struct {
			CallNo string `json:"callNo"`
		} `json:"items"`
		Total int `json:"total"`
	} `json:"data"`
}

// NewClient creates a client from the library configuration.
func NewClient(cfg *config.LibraryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// LoanHistory collects up to maxPages pages of pageSize items. Items without a
// call number are dropped. On error the items of earlier pages are returned.
func (c *Client) LoanHistory(ctx context.Context, readerID string, readerType models.ReaderType, maxPages, pageSize int) ([]models.LoanItem, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var items []models.LoanItem
	for page := 1; page <= maxPages; page++ {
		resp, err := c.fetchPage(ctx, readerID, readerType, page, pageSize)
		if err != nil {
			return items, err
		}
		if len(resp.Data.Items) == 0 {
			break
		}
		for _, it := range resp.Data.Items {
			if it.CallNo == "" {
				continue
			}
			items = append(items, models.LoanItem{CallNo: it.CallNo, ReaderID: readerID})
		}
		if page*pageSize >= resp.Data.Total {
			break
		}
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, readerID string, readerType models.ReaderType, page, pageSize int) (*loanHistoryResponse, error) {
	start := time.Now()
	outcome := "success"
	defer func() { metrics.RecordOPACRequest(outcome, time.Since(start)) }()

	header, err := NewAuthHeader(c.appID, c.appKey, c.nonce(), strconv.FormatInt(c.now().Unix(), 10))
	if err != nil {
		outcome = "transport_error"
		return nil, err
	}

	form := url.Values{}
	form.Set("id", readerID)
	form.Set("type", string(readerType))
	form.Set("currentPage", strconv.Itoa(page))
	form.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loanHistoryPath, strings.NewReader(form.Encode()))
	if err != nil {
		outcome = "transport_error"
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(authHeaderName, header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		outcome = "http_error"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var out loanHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		outcome = "transport_error"
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUpstream, err)
	}
	if out.Code != 0 {
		outcome = "api_error"
		return nil, fmt.Errorf("%w: code %d: %s", ErrAPI, out.Code, out.Message)
	}
	return &out, nil
}
