// Package apierr maps errors from OpenAI-compatible endpoints onto the
// domain error categories.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"loanqa/internal/domain"
)

// Classify wraps err in ErrAuth, ErrRateLimit or ErrNetwork. The remote
// message is kept so that quota errors can be shown to the user verbatim.
func Classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", categoryForStatus(apiErr.HTTPStatusCode, apiErr.Code), apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", categoryForStatus(reqErr.HTTPStatusCode, nil), reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}

func categoryForStatus(status int, code any) error {
	if s, ok := code.(string); ok && s == "insufficient_quota" {
		return domain.ErrRateLimit
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuth
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return domain.ErrRateLimit
	default:
		return domain.ErrNetwork
	}
}
