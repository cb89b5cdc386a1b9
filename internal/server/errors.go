package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/internal/quota"
	subscriptiondomain "github.com/scribehq/scribe/internal/subscription/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type     string                          `json:"type"`
	Message  string                          `json:"message"`
	Errors   []ValidationError               `json:"errors,omitempty"`
	Usage    *generationdomain.UsageSnapshot `json:"usage,omitempty"`
	Estimate int64                           `json:"estimate,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: err.Error(),
				},
			},
		}
	}

	if denial := asDenialError(err); denial != nil {
		usage := denial.Usage
		return http.StatusTooManyRequests, errorPayload{
			Type:     denial.Reason.Error(),
			Message:  denial.Message,
			Usage:    &usage,
			Estimate: denial.Estimate,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, entitlementdomain.ErrNoActiveGrant),
		errors.Is(err, quota.ErrFeatureNotEntitled):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "this feature is not included in your plan",
		}
	case errors.Is(err, subscriptiondomain.ErrTrialAlreadyUsed),
		errors.Is(err, subscriptiondomain.ErrActiveSubscriptionExists),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotActive):
		return http.StatusConflict, errorPayload{
			Type:    rootCode(err),
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, generationdomain.ErrGenerationFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "generation_failed",
			Message: "text generation failed, you have not been charged for this request",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, catalogdomain.ErrServiceUnavailable),
		errors.Is(err, subscriptiondomain.ErrTrialPlanUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asDenialError(err error) *generationdomain.DenialError {
	var denial *generationdomain.DenialError
	if errors.As(err, &denial) && denial != nil {
		return denial
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, generationdomain.ErrInvalidPrompt),
		errors.Is(err, generationdomain.ErrInvalidContentType),
		errors.Is(err, generationdomain.ErrInvalidTone),
		errors.Is(err, generationdomain.ErrInvalidLength),
		errors.Is(err, plandomain.ErrInvalidPlanType),
		errors.Is(err, catalogdomain.ErrInvalidServiceType),
		errors.Is(err, subscriptiondomain.ErrInvalidBillingCycle),
		errors.Is(err, subscriptiondomain.ErrPlanNotUpgradable),
		errors.Is(err, subscriptiondomain.ErrInvalidOwner),
		errors.Is(err, usagedomain.ErrInvalidOwner),
		errors.Is(err, usagedomain.ErrInvalidMetric):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, catalogdomain.ErrServiceNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return rootCode(err)
}

// rootCode unwraps to the sentinel's snake_case name, dropping any
// formatted detail suffix ("invalid_tone: \"angry\"" -> "invalid_tone").
func rootCode(err error) string {
	code := err.Error()
	for unwrapped := errors.Unwrap(err); unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		code = unwrapped.Error()
	}
	if idx := strings.IndexByte(code, ':'); idx > 0 {
		code = code[:idx]
	}
	return strings.TrimSpace(code)
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
