package engine

import "context"

// UnlockInput is what the unlock rule sees about one request.
type UnlockInput struct {
	UserID    int64
	Balance   int64
	Threshold int64
	IsAdmin   bool
}

// UnlockResult holds the result of unlock policy evaluation.
type UnlockResult struct {
	// Allowed reports whether the user may receive content.
	Allowed bool
	// Bypass is true when the grant did not depend on the balance (administrator).
	Bypass bool
}

// Evaluator evaluates the points admission rule using OPA or other engines.
type Evaluator interface {
	// EvaluateUnlock decides whether in.UserID may unlock content. On any error the result is a denial.
	EvaluateUnlock(ctx context.Context, in UnlockInput) (UnlockResult, error)
}
