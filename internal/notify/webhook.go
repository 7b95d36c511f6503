// Package notify delivers low-stock alerts to an outbound webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"litledger/internal/domain"
	applog "litledger/internal/log"
)

// Alert is the JSON body posted for a low-stock event.
type Alert struct {
	Event    string `json:"event"`
	ItemID   int64  `json:"item_id"`
	Item     string `json:"item"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
	Text     string `json:"text"`
}

type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "litledger")
	return &Webhook{client: c, url: url}
}

// LowStock posts one alert; a non-2xx answer is an error.
func (w *Webhook) LowStock(ctx context.Context, it domain.Item) error {
	body := Alert{
		Event:    "low_stock",
		ItemID:   it.ID,
		Item:     it.Name,
		Stock:    it.Stock,
		MinStock: it.MinStock,
		Text:     fmt.Sprintf("⚠️ Low stock: %s has %d left (min %d)", it.Name, it.Stock, it.MinStock),
	}
	resp, err := w.client.R().SetContext(ctx).SetBody(body).Post(w.url)
	if err != nil {
		return errors.Wrap(err, "post low-stock alert")
	}
	if resp.IsError() {
		return errors.Errorf("low-stock alert rejected: %s", resp.Status())
	}
	applog.Info(nil, "notify.low_stock.sent", map[string]any{"item": it.Name, "status": resp.StatusCode()})
	return nil
}
