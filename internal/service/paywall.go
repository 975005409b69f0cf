package service

type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// Limits are the free-usage thresholds. WarnAt fires exactly once, on the
// turn where the counter reaches it; every turn from BlockAt on is blocked.
type Limits struct {
	WarnAt  int
	BlockAt int
}

var DefaultLimits = Limits{WarnAt: 30, BlockAt: 60}

// Decide applies the paywall to a user's paid flag and post-increment counter.
// There is no reset: once blocked, a user stays blocked until marked paid.
func Decide(paid bool, messagesUsed int, limits Limits) Decision {
	switch {
	case paid:
		return DecisionAllow
	case messagesUsed == limits.WarnAt:
		return DecisionWarn
	case messagesUsed >= limits.BlockAt:
		return DecisionBlock
	default:
		return DecisionAllow
	}
}
