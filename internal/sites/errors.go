package sites

import (
	"errors"
	"fmt"

	"github.com/zapcodes-dev/zapcodes/internal/tier"
)

// ErrNotFound indicates the site does not exist or is not owned by the caller.
var ErrNotFound = errors.New("site not found")

// InvalidSubdomainError reports a subdomain that fails validation.
type InvalidSubdomainError struct {
	Subdomain string // Rejected value.
	Reason    string // Human-readable rejection reason.
}

// Error renders the rejection.
func (e *InvalidSubdomainError) Error() string {
	return fmt.Sprintf("invalid subdomain %q: %s", e.Subdomain, e.Reason)
}

// SubdomainTakenError reports a subdomain already deployed by any account.
type SubdomainTakenError struct {
	Subdomain string // Taken value.
}

// Error renders the conflict.
func (e *SubdomainTakenError) Error() string {
	return fmt.Sprintf("subdomain %q is already taken", e.Subdomain)
}

// SiteLimitReachedError reports a deploy over the plan's site cap.
type SiteLimitReachedError struct {
	Cap  tier.Limit // Plan cap.
	Used int        // Sites currently deployed.
}

// Error renders the cap detail.
func (e *SiteLimitReachedError) Error() string {
	return fmt.Sprintf("site limit reached: %d of %s sites deployed", e.Used, e.Cap)
}
