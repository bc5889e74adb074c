// Package routing implements the Model Router (complexity-class
// selection) and the Fallback Router (ordered candidate attempts with
// classified-error retry and a per-provider circuit breaker).
package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/mira-ai/sentinel/pkg/models"
)

// Complexity is the Model Router's task classification.
type Complexity string

const (
	Simple    Complexity = "simple"
	Moderate  Complexity = "moderate"
	Complex   Complexity = "complex"
	Summarize Complexity = "summarize"
)

// ClassifyError maps an arbitrary error into the gateway's error kind
// vocabulary using the same lowercased-substring heuristic the
// teacher's provider failover uses, extended to distinguish
// provider-5xx from other transient network failures and to surface
// context-overflow/validation/not-found.
func ClassifyError(err error) models.ErrorKind {
	if err == nil {
		return ""
	}

	var gwErr *models.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "context deadline"):
		return models.ErrTimeout
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return models.ErrRateLimit
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid api key"), strings.Contains(msg, "authentication"), strings.Contains(msg, "401"), strings.Contains(msg, "403"):
		return models.ErrAuth
	case strings.Contains(msg, "billing"), strings.Contains(msg, "payment"), strings.Contains(msg, "quota"), strings.Contains(msg, "402"):
		return models.ErrBilling
	case strings.Contains(msg, "context length"), strings.Contains(msg, "context_length"), strings.Contains(msg, "maximum context"), strings.Contains(msg, "too many tokens"):
		return models.ErrContextOverflow
	case strings.Contains(msg, "not found"), strings.Contains(msg, "does not exist"), strings.Contains(msg, "404"):
		return models.ErrNotFound
	case strings.Contains(msg, "internal server"), strings.Contains(msg, "server error"), strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return models.ErrProviderServerErr
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "bad request"), strings.Contains(msg, "400"):
		return models.ErrValidation
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"), strings.Contains(msg, "reset by peer"), strings.Contains(msg, "eof"):
		return models.ErrTransientNetwork
	default:
		return models.ErrInternal
	}
}

// isContextTimeout reports whether an error chain is a context
// deadline expiry, which the Fallback Router treats as its own
// timeout classification regardless of provider-specific message
// text.
func isContextTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
