package engine

import "strconv"

// StatusCode is the numeric status an exposure engine reports with a failure.
type StatusCode int

// Common platform status codes.
const (
	Success                      StatusCode = 0
	ServiceVersionUpdateRequired StatusCode = 2
	ServiceDisabled              StatusCode = 3
	SignInRequired               StatusCode = 4
	InvalidAccount               StatusCode = 5
	ResolutionRequired           StatusCode = 6
	NetworkError                 StatusCode = 7
	InternalError                StatusCode = 8
	DeveloperError               StatusCode = 10
	GenericError                 StatusCode = 13
	Interrupted                  StatusCode = 14
	Timeout                      StatusCode = 15
	Canceled                     StatusCode = 16
	APINotConnected              StatusCode = 17
)

// Exposure notification specific status codes.
const (
	FailedAlreadyStarted      StatusCode = 39500
	FailedNotSupported        StatusCode = 39501
	FailedRejectedOptIn       StatusCode = 39502
	FailedServiceDisabled     StatusCode = 39503
	FailedBluetoothDisabled   StatusCode = 39504
	FailedTemporarilyDisabled StatusCode = 39505
	FailedDiskIO              StatusCode = 39506
	FailedUnauthorized        StatusCode = 39507
	FailedRateLimited         StatusCode = 39508
)

var statusCodeNames = map[StatusCode]string{
	Success:                      "SUCCESS",
	ServiceVersionUpdateRequired: "SERVICE_VERSION_UPDATE_REQUIRED",
	ServiceDisabled:              "SERVICE_DISABLED",
	SignInRequired:               "SIGN_IN_REQUIRED",
	InvalidAccount:               "INVALID_ACCOUNT",
	ResolutionRequired:           "RESOLUTION_REQUIRED",
	NetworkError:                 "NETWORK_ERROR",
	InternalError:                "INTERNAL_ERROR",
	DeveloperError:               "DEVELOPER_ERROR",
	GenericError:                 "ERROR",
	Interrupted:                  "INTERRUPTED",
	Timeout:                      "TIMEOUT",
	Canceled:                     "CANCELED",
	APINotConnected:              "API_NOT_CONNECTED",
	FailedAlreadyStarted:         "FAILED_ALREADY_STARTED",
	FailedNotSupported:           "FAILED_NOT_SUPPORTED",
	FailedRejectedOptIn:          "FAILED_REJECTED_OPT_IN",
	FailedServiceDisabled:        "FAILED_SERVICE_DISABLED",
	FailedBluetoothDisabled:      "FAILED_BLUETOOTH_DISABLED",
	FailedTemporarilyDisabled:    "FAILED_TEMPORARILY_DISABLED",
	FailedDiskIO:                 "FAILED_DISK_IO",
	FailedUnauthorized:           "FAILED_UNAUTHORIZED",
	FailedRateLimited:            "FAILED_RATE_LIMITED",
}

// String returns the platform name of the code, or "UNKNOWN_<n>" for codes
// outside the known set. Refined codes extracted from diagnostic messages are
// often outside it.
func (c StatusCode) String() string {
	if name, ok := statusCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN_" + strconv.Itoa(int(c))
}

// Known reports whether c belongs to the enumerated platform set.
func (c StatusCode) Known() bool {
	_, ok := statusCodeNames[c]
	return ok
}
