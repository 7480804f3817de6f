// Package ledger предоставляет клиент внешнего реестра использования купонов.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Usage описывает факт применения купона в подтверждённой резервации.
// Реестр дедуплицирует записи по HoldID, поэтому повторная доставка безопасна.
type Usage struct {
	HoldID        string `json:"hold_id"`
	RaffleID      string `json:"raffle_id"`
	CouponCode    string `json:"coupon_code"`
	DiscountMinor int64  `json:"discount_minor"`
}

// Client инкапсулирует HTTP-взаимодействие с реестром купонов.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewClient создаёт HTTP-клиент реестра купонов по указанному адресу.
func NewClient(baseURL string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: c,
	}
}

// ReportUsage отправляет запись об использовании купона в реестр.
func (c *Client) ReportUsage(ctx context.Context, usage Usage) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("ledger client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}

	url := fmt.Sprintf("%s/api/coupon-usages", base)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	// 409 означает, что реестр уже учёл эту резервацию.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
