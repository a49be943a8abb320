// Package payments creates gateway orders for CARD payments. Settlement
// itself is owned by the gateway; this package only opens orders and records
// their ids.
package payments

import (
	"fmt"

	"github.com/razorpay/razorpay-go"

	"tritmo/internal/config"
)

// Gateway opens payment orders with Razorpay.
type Gateway struct {
	client *razorpay.Client
}

// NewGateway creates a Gateway from configured credentials.
func NewGateway(cfg config.RazorpayConfig) *Gateway {
	return &Gateway{client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret)}
}

// CreateOrder opens an order for the given amount and returns the gateway
// order id. Amount is converted to the gateway's smallest currency unit.
func (g *Gateway) CreateOrder(amount float64, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   int64(amount * 100),
		"currency": "INR",
		"receipt":  receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create payment order: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok {
		return "", fmt.Errorf("payment order response missing id")
	}
	return orderID, nil
}
