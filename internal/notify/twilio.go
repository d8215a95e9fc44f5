package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTwilioURL is the Twilio REST API base URL.
const DefaultTwilioURL = "https://api.twilio.com"

// TwilioOptions configures SMS delivery.
type TwilioOptions struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         string
	Timeout    time.Duration
}

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	client *resty.Client
	sid    string
	from   string
	to     string
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// NewTwilio validates opts and creates an SMS notifier.
func NewTwilio(opts TwilioOptions) (*Twilio, error) {
	switch {
	case opts.AccountSID == "":
		return nil, errors.New("twilio: account sid is required")
	case opts.AuthToken == "":
		return nil, errors.New("twilio: auth token is required")
	case opts.From == "":
		return nil, errors.New("twilio: sender number is required")
	case opts.To == "":
		return nil, errors.New("twilio: recipient number is required")
	}

	base := opts.BaseURL
	if base == "" {
		base = DefaultTwilioURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(opts.Timeout).
		SetBasicAuth(opts.AccountSID, opts.AuthToken).
		SetHeader("Accept", "application/json")

	return &Twilio{
		client: client,
		sid:    opts.AccountSID,
		from:   opts.From,
		to:     opts.To,
	}, nil
}

// Send texts message to the configured recipient.
func (t *Twilio) Send(ctx context.Context, message string) error {
	if err := t.send(ctx, message); err != nil {
		return fmt.Errorf("sms to %s: %w", t.to, err)
	}
	return nil
}

func (t *Twilio) send(ctx context.Context, message string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   t.to,
			"From": t.from,
			"Body": message,
		}).
		SetResult(&twilioMessage{}).
		SetError(&twilioError{}).
		SetPathParam("sid", t.sid).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		return err
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*twilioError); ok && e.Message != "" {
			return fmt.Errorf("status %d: code %d: %s", resp.StatusCode(), e.Code, e.Message)
		}
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}
