package apiclient

import (
	"context"
	"net/http"

	"contractrisk/internal/model"
)

type PaymentVerification struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
	Amount    string `json:"amount"`
}

func (c *Client) CreateOrder(ctx context.Context, amount int) (*model.PaymentOrder, error) {
	var out model.PaymentOrder
	if err := c.Do(ctx, http.MethodPost, "/payment/create-order", map[string]int{"amount": amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment confirms a completed checkout so the backend can credit the account.
func (c *Client) VerifyPayment(ctx context.Context, v PaymentVerification) (string, error) {
	var out messageResponse
	if err := c.Do(ctx, http.MethodPost, "/payment/verify-payment", v, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
