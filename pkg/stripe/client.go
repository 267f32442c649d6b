package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Mode is the Stripe account mode, either test or live.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"

	maxNetworkRetries = 2
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client records that the process-wide Stripe backend has been configured.
type Client struct {
	mode Mode
}

// NewClient installs the secret key and a retrying backend that logs through
// logg. The key prefix must agree with the configured mode.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode, err := parseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	if got, ok := keyMode(key); !ok || got != mode {
		return nil, fmt.Errorf("stripe %s mode requires an sk_%[1]s or rk_%[1]s key", mode)
	}

	backendCfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(maxNetworkRetries)}
	if logg != nil {
		backendCfg.LeveledLogger = leveledLogger{ctx: logg.WithField(ctx, "component", "stripe"), logg: logg}
	}
	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "storefront-backend"})
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg))

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", string(mode)), "stripe configured")
	}
	return &Client{mode: mode}, nil
}

func (c *Client) Mode() Mode {
	if c == nil {
		return ""
	}
	return c.mode
}

func parseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeTest, nil
	case ModeTest, ModeLive:
		return m, nil
	default:
		return "", fmt.Errorf("stripe environment must be %q or %q, got %q", ModeTest, ModeLive, raw)
	}
}

// keyMode reads the mode out of a secret or restricted key prefix.
func keyMode(key string) (Mode, bool) {
	kind, rest, ok := strings.Cut(key, "_")
	if !ok || (kind != "sk" && kind != "rk") {
		return "", false
	}
	mode, _, _ := strings.Cut(rest, "_")
	switch Mode(mode) {
	case ModeTest, ModeLive:
		return Mode(mode), true
	}
	return "", false
}

// leveledLogger routes stripe-go's own diagnostics into the service logger.
type leveledLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) { l.logg.Debug(l.ctx, fmt.Sprintf(format, v...)) }
func (l leveledLogger) Infof(format string, v ...any)  { l.logg.Info(l.ctx, fmt.Sprintf(format, v...)) }
func (l leveledLogger) Warnf(format string, v ...any)  { l.logg.Warn(l.ctx, fmt.Sprintf(format, v...)) }

func (l leveledLogger) Errorf(format string, v ...any) {
	l.logg.Error(l.ctx, "stripe request failed", fmt.Errorf(format, v...))
}
