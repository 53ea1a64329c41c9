package generator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// FailureCategory classifies why a provider call produced no usable reply.
type FailureCategory string

const (
	FailureConfigurationMissing FailureCategory = "configuration_missing"
	FailureInvalidCredential    FailureCategory = "invalid_credential"
	FailureQuotaExceeded        FailureCategory = "quota_exceeded"
	FailureRateLimited          FailureCategory = "rate_limited"
	FailureUnknown              FailureCategory = "unknown"
)

// ProviderError wraps a provider failure with its category. Raw provider
// error text stays inside it and is only ever logged, never shown or stored.
type ProviderError struct {
	Category FailureCategory
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider failure (%s): %v", e.Category, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Categorize extracts the failure category from an error returned by
// Generate. Anything uncategorized is Unknown.
func Categorize(err error) FailureCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return FailureUnknown
}

// Categorization is driven by provider error codes and HTTP status, not by
// substring-matching error messages, so it keeps working when the provider
// rewords its errors.
var codeCategories = map[string]FailureCategory{
	"invalid_api_key":     FailureInvalidCredential,
	"account_deactivated": FailureInvalidCredential,
	"insufficient_quota":  FailureQuotaExceeded,
	"quota_exceeded":      FailureQuotaExceeded,
	"rate_limit_exceeded": FailureRateLimited,
}

var statusCategories = map[int]FailureCategory{
	http.StatusUnauthorized:    FailureInvalidCredential,
	http.StatusForbidden:       FailureInvalidCredential,
	http.StatusTooManyRequests: FailureRateLimited,
}

func classify(err error) FailureCategory {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok {
			if cat, ok := codeCategories[code]; ok {
				return cat
			}
		}
		if cat, ok := statusCategories[apiErr.HTTPStatusCode]; ok {
			return cat
		}
	}
	// Timeouts, transport errors and anything else the table doesn't know.
	return FailureUnknown
}
