package app

import (
	"context"
	"strings"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/model"
)

type AccountService struct{}

// Overview is what the settings view shows. Usage is nil when the backend has no
// usage data for the account.
type Overview struct {
	Profile *model.Profile
	Usage   *model.Usage
}

func NewAccountService() *AccountService {
	return &AccountService{}
}

func (s *AccountService) Profile(ctx context.Context, api *apiclient.Client) (*model.Profile, error) {
	return api.Profile(ctx)
}

func (s *AccountService) Overview(ctx context.Context, api *apiclient.Client) (*Overview, error) {
	profile, err := api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	out := &Overview{Profile: profile}
	// A failed usage lookup only hides that panel.
	if usage, err := api.Usage(ctx); err == nil {
		out.Usage = usage
	}
	return out, nil
}

func (s *AccountService) Usage(ctx context.Context, api *apiclient.Client) (*model.Usage, error) {
	return api.Usage(ctx)
}

func (s *AccountService) CreateOrder(ctx context.Context, api *apiclient.Client, amount int) (*model.PaymentOrder, error) {
	if amount <= 0 {
		return nil, invalid("amount", "Choose an amount greater than zero.")
	}
	return api.CreateOrder(ctx, amount)
}

func (s *AccountService) VerifyPayment(ctx context.Context, api *apiclient.Client, v apiclient.PaymentVerification) (string, error) {
	if strings.TrimSpace(v.PaymentID) == "" || strings.TrimSpace(v.OrderID) == "" || strings.TrimSpace(v.Signature) == "" {
		return "", invalid("payment", "Payment details are incomplete.")
	}
	return api.VerifyPayment(ctx, v)
}
