package guard

import (
	"errors"
	"fmt"
)

// ErrEmptyResult signals that an external call succeeded but produced no
// usable output. The guard treats it like any other provider failure.
var ErrEmptyResult = errors.New("external provider returned no usable output")

// Feature names gated by tier flags.
const (
	// FeaturePWA is PWA building.
	FeaturePWA = "pwa"
	// FeatureBadgeRemoval is hiding the hosted badge.
	FeatureBadgeRemoval = "badge_removal"
	// FeatureProTools is the pro developer toolset.
	FeatureProTools = "pro_tools"
)

// PlanFeatureLockedError reports an action that needs a higher tier.
type PlanFeatureLockedError struct {
	Feature string // Locked feature name.
	Plan    string // Plan the user currently has.
}

// Error renders the lock detail.
func (e *PlanFeatureLockedError) Error() string {
	return fmt.Sprintf("feature %s is not available on the %s plan", e.Feature, e.Plan)
}

// ModelNotAllowedError reports a model request outside the plan's model list.
type ModelNotAllowedError struct {
	Model string // Requested model identifier.
	Plan  string // Plan the user currently has.
}

// Error renders the rejection detail.
func (e *ModelNotAllowedError) Error() string {
	return fmt.Sprintf("model %s is not available on the %s plan", e.Model, e.Plan)
}

// ProviderFailureError wraps a failed or empty external call after the
// compensating refund has already run.
type ProviderFailureError struct {
	Action string // Action that was attempted.
	Err    error  // Underlying provider error.
}

// Error renders the failure.
func (e *ProviderFailureError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *ProviderFailureError) Unwrap() error { return e.Err }
