// Package ordersys предоставляет клиент внешней системы оформления заказов.
package ordersys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/floristika/insumos-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с системой оформления заказов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Receipt описывает ответ системы оформления о принятом заказе.
type Receipt struct {
	OrderNumber string `json:"order_number"`
}

// RejectionError возвращается, когда система оформления отклонила заказ при
// финальной проверке остатков. Тело ответа передаётся дословно: ядро не
// пытается повторить или компенсировать отказ, решение остаётся за хостом.
type RejectionError struct {
	Status int
	Body   []byte
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected with status %d", e.Status)
}

// NewClient создаёт HTTP-клиент системы оформления заказов по указанному адресу.
// Транспортные сбои повторяются автоматически; бизнес-отказы не повторяются никогда.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// SubmitOrder передаёт плоскую форму выбора во внешнюю систему. Возвращает
// квитанцию о принятии либо *RejectionError с дословным телом отказа.
func (c *Client) SubmitOrder(ctx context.Context, sub *model.Submission) (*Receipt, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("order system client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	url := fmt.Sprintf("%s/api/orders", base)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		rejection, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read rejection body: %w", err)
		}
		return nil, &RejectionError{Status: resp.StatusCode, Body: rejection}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &receipt, nil
}
