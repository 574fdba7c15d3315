package engine

import (
	keyserverapi "github.com/google/exposure-notifications-server/pkg/api/v1"

	"github.com/example/exposure-bridge/internal/keyfile"
)

// TemporaryExposureKey is a rotating proximity key contributed by this device.
type TemporaryExposureKey = keyserverapi.ExposureKey

// Configuration carries the scoring parameters passed along with diagnosis keys.
// The engine owns their meaning.
type Configuration struct {
	MinimumRiskScore                int   `json:"minimumRiskScore" yaml:"minimum_risk_score"`
	AttenuationScores               []int `json:"attenuationScores,omitempty" yaml:"attenuation_scores"`
	AttenuationWeight               int   `json:"attenuationWeight" yaml:"attenuation_weight"`
	DaysSinceLastExposureScores     []int `json:"daysSinceLastExposureScores,omitempty" yaml:"days_since_last_exposure_scores"`
	DaysSinceLastExposureWeight     int   `json:"daysSinceLastExposureWeight" yaml:"days_since_last_exposure_weight"`
	DurationScores                  []int `json:"durationScores,omitempty" yaml:"duration_scores"`
	DurationWeight                  int   `json:"durationWeight" yaml:"duration_weight"`
	TransmissionRiskScores          []int `json:"transmissionRiskScores,omitempty" yaml:"transmission_risk_scores"`
	TransmissionRiskWeight          int   `json:"transmissionRiskWeight" yaml:"transmission_risk_weight"`
	DurationAtAttenuationThresholds []int `json:"durationAtAttenuationThresholds,omitempty" yaml:"duration_at_attenuation_thresholds"`
}

// Summary is the aggregated exposure information for one matching token.
type Summary struct {
	DaysSinceLastExposure       int   `json:"daysSinceLastExposure" yaml:"days_since_last_exposure"`
	MatchedKeyCount             int   `json:"matchedKeyCount" yaml:"matched_key_count"`
	MaximumRiskScore            int   `json:"maximumRiskScore" yaml:"maximum_risk_score"`
	SummationRiskScore          int   `json:"summationRiskScore" yaml:"summation_risk_score"`
	AttenuationDurationsMinutes []int `json:"attenuationDurationsMinutes,omitempty" yaml:"attenuation_durations_minutes"`
}

// Callback receives the completion of one asynchronous engine call. An engine
// must invoke exactly one of the two functions, exactly once, from any
// goroutine.
type Callback[T any] struct {
	OnSuccess func(T)
	OnFailure func(error)
}

// Succeed delivers a success value.
func (c Callback[T]) Succeed(v T) {
	if c.OnSuccess != nil {
		c.OnSuccess(v)
	}
}

// Fail delivers a failure.
func (c Callback[T]) Fail(err error) {
	if c.OnFailure != nil {
		c.OnFailure(err)
	}
}

// Engine is the capability-providing exposure notification service. Every
// method returns immediately and completes through cb.
type Engine interface {
	IsEnabled(cb Callback[bool])
	Start(cb Callback[struct{}])
	Stop(cb Callback[struct{}])
	TemporaryExposureKeyHistory(cb Callback[[]TemporaryExposureKey])
	ProvideDiagnosisKeys(files []keyfile.File, cfg Configuration, token string, cb Callback[struct{}])
	GetExposureSummary(token string, cb Callback[*Summary])
}
