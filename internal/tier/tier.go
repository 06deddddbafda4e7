package tier

import (
	"encoding/json"
	"strings"
)

// Plan slugs for the canonical tier table.
const (
	// PlanFree is the default tier and the fallback for unknown plans.
	PlanFree = "free"
	// PlanBronze is the entry paid tier.
	PlanBronze = "bronze"
	// PlanSilver is the mid paid tier.
	PlanSilver = "silver"
	// PlanGold is the high paid tier.
	PlanGold = "gold"
	// PlanDiamond is the top paid tier.
	PlanDiamond = "diamond"
)

// Capabilities is the static capability table for one plan.
type Capabilities struct {
	Plan string `json:"plan"` // Plan slug the table belongs to.

	DailyClaimCoins int64 `json:"daily_claim_coins"` // Coins credited by the daily claim.

	DailyGenerationCap Limit `json:"daily_generation_cap"` // Generations allowed per day.
	DailyFixCap        Limit `json:"daily_fix_cap"`        // Code fixes allowed per day.
	DailyPushCap       Limit `json:"daily_push_cap"`       // GitHub pushes allowed per day.

	MaxSites        Limit `json:"max_sites"`         // Concurrent deployed sites.
	MaxRequestChars Limit `json:"max_request_chars"` // Characters accepted per prompt.
	MaxUploadBytes  Limit `json:"max_upload_bytes"`  // Uploaded file size in bytes.

	Models []string `json:"models"` // Allowed model identifiers, first is the default.

	RequestsPerSecond int `json:"requests_per_second"` // API request burst limit, 0 defers to settings.

	AllowPWA          bool `json:"allow_pwa"`           // PWA building enabled.
	AllowBadgeRemoval bool `json:"allow_badge_removal"` // Hosted badge may be hidden.
	AllowProTools     bool `json:"allow_pro_tools"`     // Pro developer tools enabled.
}

// DefaultModel returns the first allowed model identifier.
func (c Capabilities) DefaultModel() string {
	if len(c.Models) == 0 {
		return ""
	}
	return c.Models[0]
}

// AllowsModel reports whether the model identifier is available on this plan.
func (c Capabilities) AllowsModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// table is the canonical capability table, coin-economy revision.
var table = map[string]Capabilities{
	PlanFree: {
		Plan:               PlanFree,
		DailyClaimCoins:    2500,
		DailyGenerationCap: 3,
		DailyFixCap:        1,
		DailyPushCap:       1,
		MaxSites:           1,
		MaxRequestChars:    4000,
		MaxUploadBytes:     1 << 20,
		Models:             []string{"llama-3.1-8b-instant"},
		RequestsPerSecond:  1,
	},
	PlanBronze: {
		Plan:               PlanBronze,
		DailyClaimCoins:    5000,
		DailyGenerationCap: 10,
		DailyFixCap:        3,
		DailyPushCap:       3,
		MaxSites:           2,
		MaxRequestChars:    8000,
		MaxUploadBytes:     2 << 20,
		Models:             []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
		RequestsPerSecond:  2,
	},
	PlanSilver: {
		Plan:               PlanSilver,
		DailyClaimCoins:    10000,
		DailyGenerationCap: 25,
		DailyFixCap:        10,
		DailyPushCap:       10,
		MaxSites:           5,
		MaxRequestChars:    16000,
		MaxUploadBytes:     5 << 20,
		Models:             []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant", "claude-3-5-haiku-latest"},
		RequestsPerSecond:  4,
		AllowBadgeRemoval:  true,
	},
	PlanGold: {
		Plan:               PlanGold,
		DailyClaimCoins:    20000,
		DailyGenerationCap: 60,
		DailyFixCap:        30,
		DailyPushCap:       30,
		MaxSites:           10,
		MaxRequestChars:    32000,
		MaxUploadBytes:     10 << 20,
		Models:             []string{"claude-3-7-sonnet-latest", "claude-3-5-haiku-latest", "llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
		RequestsPerSecond:  8,
		AllowPWA:           true,
		AllowBadgeRemoval:  true,
	},
	PlanDiamond: {
		Plan:               PlanDiamond,
		DailyClaimCoins:    50000,
		DailyGenerationCap: Unlimited,
		DailyFixCap:        Unlimited,
		DailyPushCap:       Unlimited,
		MaxSites:           25,
		MaxRequestChars:    64000,
		MaxUploadBytes:     25 << 20,
		Models:             []string{"claude-3-7-sonnet-latest", "claude-3-5-haiku-latest", "llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
		RequestsPerSecond:  15,
		AllowPWA:           true,
		AllowBadgeRemoval:  true,
		AllowProTools:      true,
	},
}

// Resolve maps a plan slug to its capability table.
//
// Unknown plan slugs resolve to the free table. Callers rely on this as a
// safety default, so Resolve never errors and never returns an empty table.
func Resolve(plan string) Capabilities {
	if caps, ok := table[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return caps
	}
	return table[PlanFree]
}

// FromStored decodes a denormalized capability snapshot stored on an account.
// It falls back to the canonical table when the snapshot is empty, malformed,
// or belongs to a different plan than the account's current slug.
func FromStored(plan string, stored []byte) Capabilities {
	if len(stored) > 0 {
		var caps Capabilities
		errDecode := json.Unmarshal(stored, &caps)
		if errDecode == nil && caps.Plan == strings.ToLower(strings.TrimSpace(plan)) {
			return caps
		}
	}
	return Resolve(plan)
}

// Plans returns the plan slugs in ascending tier order.
func Plans() []string {
	return []string{PlanFree, PlanBronze, PlanSilver, PlanGold, PlanDiamond}
}

// KnownPlan reports whether the slug names a plan in the table.
func KnownPlan(plan string) bool {
	_, ok := table[strings.ToLower(strings.TrimSpace(plan))]
	return ok
}
