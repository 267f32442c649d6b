package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

const orderIDMetadataKey = "order_id"

// CheckoutLine is one priced line of a hosted checkout page.
type CheckoutLine struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int
}

// CheckoutRequest describes the hosted checkout session for one order.
type CheckoutRequest struct {
	OrderID    uuid.UUID
	Currency   string
	Lines      []CheckoutLine
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of the Stripe session the order flow needs.
type CheckoutSession struct {
	ID  string
	URL string
}

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type sessionPackage struct{}

func (sessionPackage) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (sessionPackage) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

// CheckoutGateway creates hosted checkout sessions and checks their payment state.
type CheckoutGateway struct {
	sessions sessionAPI
}

// NewCheckoutGateway requires a configured Client so sessions never go out unauthenticated.
func NewCheckoutGateway(client *Client) (*CheckoutGateway, error) {
	if client.Mode() == "" {
		return nil, errors.New("stripe client is required")
	}
	return &CheckoutGateway{sessions: sessionPackage{}}, nil
}

// CreateSession opens a payment-mode checkout session with one line per request line.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if len(req.Lines) == 0 {
		return nil, errors.New("checkout requires at least one line")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %q has non-positive quantity", line.Name)
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(ToMinorUnits(line.UnitAmount)),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		LineItems:         items,
		Metadata:          map[string]string{orderIDMetadataKey: req.OrderID.String()},
	}
	params.Context = ctx

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if sess == nil || sess.URL == "" {
		return nil, errors.New("checkout session returned no url")
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// SessionPaid reports whether Stripe marked the session as paid.
func (g *CheckoutGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// ToMinorUnits converts a currency amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
