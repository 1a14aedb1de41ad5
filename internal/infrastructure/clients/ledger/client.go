package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mufasadev/transfers/internal/domain/gateways"
	"github.com/mufasadev/transfers/internal/domain/models"
	"github.com/mufasadev/transfers/pkg/breaker"
	"github.com/mufasadev/transfers/pkg/log"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	accountPath   = "/v1/accounts/{iban}"
	operationPath = "/v1/accounts/operation/{iban}"

	defaultThreshold = 5
	defaultCooldown  = time.Minute
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	TimeURL     string
	TimeTimeout time.Duration
	// Breaker guards calls to BaseURL. It must be shared by every client of
	// the same accounts service.
	Breaker *gobreaker.CircuitBreaker
	// TimeBreaker guards calls to TimeURL.
	TimeBreaker *gobreaker.CircuitBreaker
}

// Client talks to the accounts service through a circuit breaker.
type Client struct {
	http        *resty.Client
	timeHTTP    *resty.Client
	timeURL     string
	breaker     *gobreaker.CircuitBreaker
	timeBreaker *gobreaker.CircuitBreaker
	logger      *zerolog.Logger
}

var _ gateways.Ledger = (*Client)(nil)

func NewClient(opts Options) *Client {
	l := log.GetLogger()
	if opts.Breaker == nil {
		opts.Breaker = breaker.New(breaker.Settings{Name: opts.BaseURL, Threshold: defaultThreshold, Cooldown: defaultCooldown})
	}
	if opts.TimeBreaker == nil {
		opts.TimeBreaker = breaker.New(breaker.Settings{Name: opts.TimeURL, Threshold: defaultThreshold, Cooldown: defaultCooldown})
	}
	return &Client{
		http: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json"),
		timeHTTP:    resty.New().SetTimeout(opts.TimeTimeout),
		timeURL:     opts.TimeURL,
		breaker:     opts.Breaker,
		timeBreaker: opts.TimeBreaker,
		logger:      &l,
	}
}

type balanceDelta struct {
	Balance int64 `json:"balance"`
}

// Debit removes amount from the account.
func (c *Client) Debit(ctx context.Context, accountID string, amount int64) gateways.Outcome {
	return c.applyDelta(ctx, accountID, -amount)
}

// Credit adds amount to the account.
func (c *Client) Credit(ctx context.Context, accountID string, amount int64) gateways.Outcome {
	return c.applyDelta(ctx, accountID, amount)
}

func (c *Client) applyDelta(ctx context.Context, accountID string, delta int64) gateways.Outcome {
	resp, err := c.execute(func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("iban", accountID).
			SetBody(balanceDelta{Balance: delta}).
			Patch(operationPath)
	})
	outcome := classify(resp, err)
	if outcome != gateways.OutcomeOK {
		c.logger.Error().Err(err).Str("account", accountID).Int64("delta", delta).Str("outcome", outcome.String()).Msg("balance operation failed")
	}
	return outcome
}

// GetAccount reads the current state of the account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*models.Account, gateways.Outcome) {
	resp, err := c.execute(func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetPathParam("iban", accountID).
			Get(accountPath)
	})
	outcome := classify(resp, err)
	if outcome != gateways.OutcomeOK {
		return nil, outcome
	}

	var account models.Account
	if err = json.Unmarshal(resp.Body(), &account); err != nil {
		c.logger.Error().Err(err).Str("account", accountID).Msg("failed to decode account")
		return nil, gateways.OutcomeRemoteError
	}

	return &account, gateways.OutcomeOK
}

type timeResponse struct {
	DateTime string `json:"dateTime"`
}

// GetExternalTime fetches the current UTC time from the time source. Any
// failure is reported as ok=false.
func (c *Client) GetExternalTime(ctx context.Context) (string, bool) {
	if c.timeURL == "" {
		return "", false
	}

	result, err := c.timeBreaker.Execute(func() (interface{}, error) {
		resp, err := c.timeHTTP.R().SetContext(ctx).Get(c.timeURL)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, breaker.ErrFailure)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("time source returned %d: %w", resp.StatusCode(), breaker.ErrFailure)
		}
		return resp, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to fetch GMT time")
		return "", false
	}

	var payload timeResponse
	if err = json.Unmarshal(result.(*resty.Response).Body(), &payload); err != nil || payload.DateTime == "" {
		c.logger.Warn().Err(err).Msg("time source returned an unusable body")
		return "", false
	}

	return payload.DateTime, true
}

// execute runs call through the accounts breaker. Transport errors and 5xx
// responses count as failures; other responses are returned as they are.
func (c *Client) execute(call func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := call()
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", describe(resp), err, breaker.ErrFailure)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%s returned %d: %w", describe(resp), resp.StatusCode(), breaker.ErrFailure)
		}
		return resp, nil
	})

	resp, _ := result.(*resty.Response)
	return resp, err
}

func classify(resp *resty.Response, err error) gateways.Outcome {
	if breaker.IsOpen(err) {
		return gateways.OutcomeServiceUnavailable
	}
	if err != nil || resp == nil {
		return gateways.OutcomeRemoteError
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusForbidden:
		return gateways.OutcomeInsufficientFunds
	case code == http.StatusNotFound:
		return gateways.OutcomeNotFound
	case code >= http.StatusBadRequest:
		return gateways.OutcomeRemoteError
	}
	return gateways.OutcomeOK
}

func describe(resp *resty.Response) string {
	if resp == nil || resp.Request == nil {
		return "accounts service"
	}
	u, err := url.Parse(resp.Request.URL)
	if err != nil {
		return resp.Request.Method + " " + resp.Request.URL
	}
	return resp.Request.Method + " " + u.Path
}
