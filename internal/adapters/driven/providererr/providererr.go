// Package providererr maps AI provider HTTP failures onto domain error kinds
// so the retry policies can tell throttling and outages from bad requests.
package providererr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

const maxBody = 512

// FromStatus classifies a non-2xx response.
// 429 wraps domain.ErrRateLimited; 408 and 5xx wrap domain.ErrTransient.
// Everything else is permanent.
func FromStatus(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: API returned status %d: %s", domain.ErrRateLimited, provider, status, msg)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: API returned status %d: %s", domain.ErrTransient, provider, status, msg)
	default:
		return fmt.Errorf("%s: API returned status %d: %s", provider, status, msg)
	}
}

// FromTransport classifies an error from http.Client.Do.
// Cancellation passes through; connection failures and timeouts are transient.
func FromTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%w: %s: send request: %w", domain.ErrTransient, provider, err)
}
