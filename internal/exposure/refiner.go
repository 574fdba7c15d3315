package exposure

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/example/exposure-bridge/internal/engine"
)

// DefaultConnectionResultPattern matches the connection diagnostic embedded in
// API_NOT_CONNECTED messages, e.g.
//
//	ConnectionResult{statusCode=SERVICE_DISABLED(17), resolution=null, message=null}
//
// The first capture group holds the numeric code. The message format is not a
// versioned contract of the engine, which is why it can be overridden.
const DefaultConnectionResultPattern = `ConnectionResult\{statusCode=[A-Za-z0-9_]+\((\d+)\),`

var errPatternGroup = errors.New("exposure: status message pattern needs a capture group for the code")

var defaultRefiner = MustRefiner(DefaultConnectionResultPattern)

// Refiner extracts a more specific status code from the diagnostic message of
// an API_NOT_CONNECTED failure. It is immutable and safe for concurrent use.
type Refiner struct {
	pattern *regexp.Regexp
}

// NewRefiner compiles pattern. An empty pattern selects the default.
func NewRefiner(pattern string) (*Refiner, error) {
	if pattern == "" {
		pattern = DefaultConnectionResultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("exposure: compile status message pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, errPatternGroup
	}
	return &Refiner{pattern: re}, nil
}

// MustRefiner is the panic-on-error variant of NewRefiner.
func MustRefiner(pattern string) *Refiner {
	r, err := NewRefiner(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the source of the compiled pattern.
func (r *Refiner) Pattern() string {
	if r == nil {
		return defaultRefiner.pattern.String()
	}
	return r.pattern.String()
}

// Refine returns the refined code for err. It never fails: when err carries
// no platform code it returns engine.GenericError, and when the code is not
// API_NOT_CONNECTED, the message is absent, the pattern does not match or the
// digits do not fit an int, it returns the original code.
func (r *Refiner) Refine(err error) engine.StatusCode {
	if r == nil {
		r = defaultRefiner
	}
	pe, ok := engine.AsPlatformError(err)
	if !ok {
		return engine.GenericError
	}
	if pe.Code != engine.APINotConnected || !pe.HasMessage() {
		return pe.Code
	}
	m := r.pattern.FindStringSubmatch(pe.Message)
	if len(m) < 2 {
		return pe.Code
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return pe.Code
	}
	return engine.StatusCode(n)
}

// RefineStatusCode refines err with the default pattern.
func RefineStatusCode(err error) engine.StatusCode {
	return defaultRefiner.Refine(err)
}
