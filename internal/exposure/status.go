package exposure

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/example/exposure-bridge/internal/engine"
)

// ErrorDomain is the ErrorInfo domain attached to projected statuses.
const ErrorDomain = "exposure.bridge"

// RetryDelay is the back-off advertised for retryable connectivity and disk
// failures.
var RetryDelay = 30 * time.Second

// Status projects r onto a gRPC status so results can cross a service
// boundary. Success variants map to codes.OK with no details.
func Status(r Result) *status.Status {
	if r == nil {
		return status.New(codes.Internal, "exposure: nil result")
	}

	var (
		code     codes.Code
		msg      string
		metadata = map[string]string{"disposition": r.Disposition().String()}
		retry    bool
	)

	switch v := r.(type) {
	case StatusEnabled, StatusDisabled, EnableEnabled, DisableDisabled, KeyHistorySuccess, DiagnosisKeysSuccess:
		return status.New(codes.OK, r.Outcome())
	case StatusUnavailable:
		code = codes.Unavailable
		msg = "exposure engine not connected: " + v.Code.String()
		metadata["refined_code"] = strconv.Itoa(int(v.Code))
		retry = true
	case EnableResolutionRequired:
		code = codes.FailedPrecondition
		msg = "user resolution required"
		metadata["status_code"] = strconv.Itoa(int(engine.ResolutionRequired))
	case KeyHistoryRequireConsent:
		code = codes.FailedPrecondition
		msg = "user consent required"
		metadata["status_code"] = strconv.Itoa(int(engine.ResolutionRequired))
	case DiagnosisKeysFailedDiskIO:
		code = codes.ResourceExhausted
		msg = "exposure engine disk I/O failure"
		metadata["status_code"] = strconv.Itoa(int(engine.FailedDiskIO))
		retry = true
	default:
		cause := CauseOf(r)
		code, msg = unknownCode(cause)
		if sc, ok := engine.CodeOf(cause); ok {
			metadata["status_code"] = strconv.Itoa(int(sc))
		}
	}

	st := status.New(code, msg)
	details := []protoadapt.MessageV1{&errdetails.ErrorInfo{
		Reason:   strings.ToUpper(r.Outcome()),
		Domain:   ErrorDomain,
		Metadata: metadata,
	}}
	if retry {
		details = append(details, &errdetails.RetryInfo{RetryDelay: durationpb.New(RetryDelay)})
	}
	withDetails, err := st.WithDetails(details...)
	if err != nil {
		return st
	}
	return withDetails
}

func unknownCode(cause error) (codes.Code, string) {
	switch {
	case cause == nil:
		return codes.Unknown, "unknown exposure engine error"
	case errors.Is(cause, context.Canceled):
		return codes.Canceled, cause.Error()
	case errors.Is(cause, context.DeadlineExceeded):
		return codes.DeadlineExceeded, cause.Error()
	default:
		return codes.Unknown, cause.Error()
	}
}
