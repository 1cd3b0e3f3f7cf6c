package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:           http.StatusBadRequest,
		KindConflict:             http.StatusConflict,
		KindUnauthorized:         http.StatusUnauthorized,
		KindForbidden:            http.StatusForbidden,
		KindNotFound:             http.StatusNotFound,
		KindNoSubscription:       http.StatusBadRequest,
		KindSubscriptionRequired: http.StatusPaymentRequired,
		KindRateLimited:          http.StatusTooManyRequests,
		KindInternal:             http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Status(), k.String())
	}
}

func TestErrorsIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load shop: %w", NotFound("Shop not found"))
	assert.True(t, errors.Is(err, NotFound("")))
	assert.False(t, errors.Is(err, Conflict("")))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTokenReasonMatching(t *testing.T) {
	err := TokenError(ReasonTokenExpired, "Token expired", nil)
	assert.True(t, errors.Is(err, &Error{Kind: KindUnauthorized, Reason: ReasonTokenExpired}))
	assert.False(t, errors.Is(err, &Error{Kind: KindUnauthorized, Reason: ReasonTokenInvalid}))
	assert.True(t, errors.Is(err, Unauthorized("")))
}

func TestAsWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("socket closed")
	e := As(cause)
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "Internal server error", e.Message)
	assert.ErrorIs(t, e, cause)
}
