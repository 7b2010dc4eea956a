package providererr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// FromGoogle classifies an error returned by a Google client library,
// which surfaces either gRPC status codes or googleapi.Error.
func FromGoogle(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return FromStatus(provider, apiErr.Code, []byte(apiErr.Message))
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s: %w", domain.ErrRateLimited, provider, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return fmt.Errorf("%w: %s: %w", domain.ErrTransient, provider, err)
	case codes.Unknown:
		// Not a gRPC status: network level failure.
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", domain.ErrTransient, provider, err)
		}
	}
	return fmt.Errorf("%s: %w", provider, err)
}
