package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/internal/quota"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{entitlementdomain.ErrNoActiveGrant, http.StatusForbidden, "forbidden"},
		{quota.ErrFeatureNotEntitled, http.StatusForbidden, "forbidden"},
		{subscriptiondomain.ErrTrialAlreadyUsed, http.StatusConflict, "trial_already_used"},
		{subscriptiondomain.ErrActiveSubscriptionExists, http.StatusConflict, "active_subscription_exists"},
		{plandomain.ErrPlanNotFound, http.StatusNotFound, "not_found"},
		{subscriptiondomain.ErrSubscriptionNotFound, http.StatusNotFound, "not_found"},
		{generationdomain.ErrGenerationFailed, http.StatusBadGateway, "generation_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		if status != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, status)
		}
		if payload.Type != tc.typ {
			t.Fatalf("%v: expected type %q, got %q", tc.err, tc.typ, payload.Type)
		}
	}
}

func TestMapErrorValidation(t *testing.T) {
	wrapped := fmt.Errorf("%w: %q", generationdomain.ErrInvalidContentType, "haiku")
	status, payload := mapError(wrapped)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if payload.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %s", payload.Type)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Code != "invalid_content_type" {
		t.Fatalf("unexpected validation payload %+v", payload.Errors)
	}
	if payload.Errors[0].Field != "content_type" {
		t.Fatalf("expected field content_type, got %s", payload.Errors[0].Field)
	}
}

func TestMapErrorDenialCarriesSnapshot(t *testing.T) {
	denial := &generationdomain.DenialError{
		Reason:  generationdomain.ErrDailyLimitReached,
		Message: "Daily word limit reached (500 words). Upgrade your plan for more words.",
		Usage:   generationdomain.UsageSnapshot{Used: 500, Limit: 500, Remaining: 0},
	}

	status, payload := mapError(denial)
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if payload.Type != "daily_limit_reached" {
		t.Fatalf("expected daily_limit_reached, got %s", payload.Type)
	}
	if payload.Usage == nil || payload.Usage.Used != 500 {
		t.Fatalf("expected usage snapshot in payload, got %+v", payload.Usage)
	}

	overage := &generationdomain.DenialError{
		Reason:   generationdomain.ErrEstimatedOverage,
		Message:  "This request would exceed your daily limit. You have 50 words remaining today.",
		Usage:    generationdomain.UsageSnapshot{Used: 450, Limit: 500, Remaining: 50},
		Estimate: 400,
	}
	status, payload = mapError(overage)
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for overage, got %d", status)
	}
	if payload.Estimate != 400 {
		t.Fatalf("expected estimate 400, got %d", payload.Estimate)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(fmt.Errorf("%w: %q", generationdomain.ErrInvalidTone, "angry"))
	if typ != "validation_error" || code != "invalid_tone" {
		t.Fatalf("unexpected classification %s/%s", typ, code)
	}

	typ, code = classifyErrorForLog(subscriptiondomain.ErrTrialAlreadyUsed)
	if typ != "trial_already_used" || code != "trial_already_used" {
		t.Fatalf("unexpected classification %s/%s", typ, code)
	}
}
