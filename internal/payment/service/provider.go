// Package service integrates with the external payment provider: webhook
// signature verification and the synchronous refund call.
package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// Signer verifies provider payload signatures. The provider signs the raw
// request body with HMAC-SHA256 over a shared secret and sends the hex digest
// alongside it.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer for the shared webhook secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex HMAC-SHA256 digest of payload.
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches payload. Comparison is constant
// time.
func (s *Signer) Verify(payload []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// ProviderClient issues calls against the payment provider.
type ProviderClient interface {
	Refund(ctx context.Context, providerRef string, amount int64, currency string) error
}

// HTTPProviderClient is the HTTP implementation of ProviderClient.
type HTTPProviderClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
}

// NewHTTPProviderClient creates a provider client against baseURL with the
// given request timeout.
func NewHTTPProviderClient(baseURL string, timeout time.Duration, signer *Signer) *HTTPProviderClient {
	return &HTTPProviderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		signer: signer,
	}
}

// refundRequest is the provider's refund call payload.
type refundRequest struct {
	ProviderRef string `json:"provider_ref"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Refund asks the provider to return a captured amount. Transport failures
// and provider 5xx responses surface as transient errors so the saga sweep
// retries them; a 4xx means the provider rejected the request outright.
func (c *HTTPProviderClient) Refund(ctx context.Context, providerRef string, amount int64, currency string) error {
	body, err := json.Marshal(refundRequest{
		ProviderRef: providerRef,
		Amount:      amount,
		Currency:    currency,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal refund request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refunds", bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build refund request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", c.signer.Sign(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, "refund call failed: "+err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.Wrap(apperrors.ErrConflict,
			fmt.Sprintf("provider rejected refund with status %d", resp.StatusCode))
	default:
		return apperrors.Wrap(apperrors.ErrTransient,
			fmt.Sprintf("provider refund returned status %d", resp.StatusCode))
	}
}
