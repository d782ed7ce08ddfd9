// Package twilio is a minimal client for the Twilio Messages API, covering
// outbound SMS and webhook signature validation.
package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"
)

const apiBase = "https://api.twilio.com/2010-04-01"

// Client sends SMS through the Twilio REST API. A shared rate limiter paces
// outbound sends so campaign bursts stay under the account's throughput cap.
type Client struct {
	accountSID  string
	authToken   string
	from        string
	callbackURL string
	http        *http.Client
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewClient creates a Twilio client from config. Returns nil when Twilio is
// not configured; callers treat a nil client as SMS disabled.
func NewClient(cfg config.TwilioConfig, log *logger.Logger) *Client {
	if !cfg.IsTwilioEnabled() {
		return nil
	}

	perMinute := cfg.GetSMSSendsPerMinute()
	return &Client{
		accountSID:  cfg.GetTwilioAccountSID(),
		authToken:   cfg.GetTwilioAuthToken(),
		from:        cfg.GetTwilioFromNumber(),
		callbackURL: cfg.GetTwilioStatusCallbackURL(),
		http:        &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		log:         log,
	}
}

type sendResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Send delivers one SMS and returns the provider message SID. It blocks on
// the rate limiter, so a cancelled context aborts a queued send.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", apperr.Unavailable("sms is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("sms rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)
	if c.callbackURL != "" {
		form.Set("StatusCallback", c.callbackURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", apiBase, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", apperr.Unavailable(fmt.Sprintf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse twilio response: %w", err)
	}

	c.log.Info("sms sent", "to", to, "sid", parsed.SID, "status", parsed.Status)
	return parsed.SID, nil
}

// ValidateSignature checks the X-Twilio-Signature header on a webhook
// request: base64 HMAC-SHA1 over the full URL plus the form parameters
// appended in sorted key order.
func (c *Client) ValidateSignature(fullURL string, params url.Values, signature string) bool {
	if c == nil {
		return false
	}
	return ValidateSignature(c.authToken, fullURL, params, signature)
}

// ValidateSignature is the token-explicit form, used in tests.
func ValidateSignature(authToken, fullURL string, params url.Values, signature string) bool {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(fullURL)
	for _, k := range keys {
		payload.WriteString(k)
		payload.WriteString(params.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
