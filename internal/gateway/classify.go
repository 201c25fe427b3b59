package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"mediagen/internal/domain"
	"mediagen/internal/providers"
)

// rule maps a provider status response onto a failure class. Rules are
// evaluated in order and the first match wins.
type rule struct {
	name  string
	class domain.FailureClass
	match func(status int, text string) bool
}

var statusRules = []rule{
	{"rate_limited", domain.ClassTransient, func(status int, _ string) bool {
		return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
	}},
	{"server_error", domain.ClassTransient, func(status int, _ string) bool {
		return status >= http.StatusInternalServerError
	}},
	{"unavailable_for_account", domain.ClassPermanentForProvider, func(_ int, text string) bool {
		return containsAny(text, "not enabled", "not available", "not supported in", "region", "location", "unpurchased", "model not found")
	}},
	{"access", domain.ClassPermanentForProvider, func(status int, _ string) bool {
		return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
	}},
	{"content_policy", domain.ClassPermanentForRequest, func(_ int, text string) bool {
		return containsAny(text, "safety", "policy", "inappropriate", "datainspection", "blocked", "prohibited")
	}},
	{"invalid_request", domain.ClassPermanentForRequest, func(status int, _ string) bool {
		return status == http.StatusBadRequest || status == http.StatusUnprocessableEntity
	}},
}

// Classify decides how the fallback chain reacts to a provider error.
// Unknown errors are treated as permanent for the provider so the chain
// moves on instead of retrying blindly.
func Classify(err error) domain.FailureClass {
	class, _ := classify(err)
	return class
}

func classify(err error) (domain.FailureClass, string) {
	if err == nil {
		return "", ""
	}
	if errors.Is(err, providers.ErrNotConfigured) {
		return domain.ClassPermanentForProvider, "not_configured"
	}
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		text := strings.ToLower(statusErr.Code + " " + statusErr.Message)
		for _, r := range statusRules {
			if r.match(statusErr.StatusCode, text) {
				return r.class, r.name
			}
		}
		return domain.ClassPermanentForProvider, "unclassified_status"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ClassTransient, "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ClassTransient, "network"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.ClassTransient, "network"
	}
	return domain.ClassPermanentForProvider, "unclassified"
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func reason(err error) string {
	var statusErr *providers.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}
