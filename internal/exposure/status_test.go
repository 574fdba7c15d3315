package exposure_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"

	"github.com/example/exposure-bridge/internal/engine"
	"github.com/example/exposure-bridge/internal/exposure"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		result exposure.Result
		want   codes.Code
	}{
		{exposure.StatusEnabled{}, codes.OK},
		{exposure.StatusDisabled{}, codes.OK},
		{exposure.EnableEnabled{}, codes.OK},
		{exposure.DisableDisabled{}, codes.OK},
		{exposure.KeyHistorySuccess{}, codes.OK},
		{exposure.DiagnosisKeysSuccess{}, codes.OK},
		{exposure.StatusUnavailable{Code: 17}, codes.Unavailable},
		{exposure.EnableResolutionRequired{Handle: "h"}, codes.FailedPrecondition},
		{exposure.KeyHistoryRequireConsent{Handle: "h"}, codes.FailedPrecondition},
		{exposure.DiagnosisKeysFailedDiskIO{}, codes.ResourceExhausted},
		{exposure.StatusUnknownError{Cause: engine.NewPlatformError(engine.InternalError, "")}, codes.Unknown},
		{exposure.EnableUnknownError{Cause: context.Canceled}, codes.Canceled},
		{exposure.DisableUnknownError{Cause: fmt.Errorf("wait: %w", context.DeadlineExceeded)}, codes.DeadlineExceeded},
		{exposure.KeyHistoryUnknownError{}, codes.Unknown},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%T", tc.result), func(t *testing.T) {
			st := exposure.Status(tc.result)
			assert.Equal(t, tc.want, st.Code())
			if tc.want == codes.OK {
				assert.Empty(t, st.Details())
			}
		})
	}
}

func TestStatusDetails(t *testing.T) {
	st := exposure.Status(exposure.StatusUnavailable{Code: 17})

	var (
		info  *errdetails.ErrorInfo
		retry *errdetails.RetryInfo
	)
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			info = v
		case *errdetails.RetryInfo:
			retry = v
		}
	}
	require.NotNil(t, info)
	assert.Equal(t, "UNAVAILABLE", info.GetReason())
	assert.Equal(t, exposure.ErrorDomain, info.GetDomain())
	assert.Equal(t, "17", info.GetMetadata()["refined_code"])
	assert.Equal(t, "retry", info.GetMetadata()["disposition"])

	require.NotNil(t, retry)
	assert.Equal(t, exposure.RetryDelay, retry.GetRetryDelay().AsDuration())
}

func TestStatusResolutionHasNoRetryInfo(t *testing.T) {
	st := exposure.Status(exposure.EnableResolutionRequired{Handle: "h"})
	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, "RESOLUTION_REQUIRED", info.GetReason())
	assert.Equal(t, "resolve", info.GetMetadata()["disposition"])
	assert.Equal(t, "6", info.GetMetadata()["status_code"])
}

func TestStatusUnknownErrorCarriesPlatformCode(t *testing.T) {
	st := exposure.Status(exposure.DiagnosisKeysUnknownError{Cause: engine.NewPlatformError(engine.FailedRateLimited, "slow down")})
	assert.Equal(t, codes.Unknown, st.Code())
	require.Len(t, st.Details(), 1)
	info := st.Details()[0].(*errdetails.ErrorInfo)
	assert.Equal(t, "UNKNOWN_ERROR", info.GetReason())
	assert.Equal(t, fmt.Sprint(int(engine.FailedRateLimited)), info.GetMetadata()["status_code"])
}

func TestResultHelpers(t *testing.T) {
	cause := engine.NewPlatformError(engine.InternalError, "")
	assert.Same(t, cause, exposure.CauseOf(exposure.EnableUnknownError{Cause: cause}))
	assert.Nil(t, exposure.CauseOf(exposure.EnableEnabled{}))

	h, ok := exposure.HandleOf(exposure.KeyHistoryRequireConsent{Handle: "intent"})
	assert.True(t, ok)
	assert.Equal(t, "intent", h)
	_, ok = exposure.HandleOf(exposure.StatusEnabled{})
	assert.False(t, ok)
}
