package tier

// Action identifies a coin-consuming operation.
type Action string

// Action constants define the coin-consuming operations.
const (
	// ActionGeneration is a scaffolding generation.
	ActionGeneration Action = "generation"
	// ActionCodeFix is a repository code fix.
	ActionCodeFix Action = "code_fix"
	// ActionGithubPush is a GitHub branch push with PR.
	ActionGithubPush Action = "github_push"
	// ActionPWABuild is a PWA build of a deployed site.
	ActionPWABuild Action = "pwa_build"
	// ActionBadgeRemoval hides the hosted badge on a deployed site.
	ActionBadgeRemoval Action = "badge_removal"
)

// SignupBonusCoins is the one-time credit granted on the first daily claim.
const SignupBonusCoins int64 = 10000

// costs is the static coin cost per action.
var costs = map[Action]int64{
	ActionGeneration:   5000,
	ActionCodeFix:      10000,
	ActionGithubPush:   2500,
	ActionPWABuild:     20000,
	ActionBadgeRemoval: 15000,
}

// Cost returns the coin cost of an action. Unknown actions cost zero.
func Cost(action Action) int64 {
	return costs[action]
}
