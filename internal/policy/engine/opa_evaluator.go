package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"
)

// PolicyPackage is the Rego package every unlock policy must declare.
const PolicyPackage = "referral.unlock"

const policyQuery = "data.referral.unlock"

// Default Rego policy: administrators bypass, everyone else needs balance >= threshold.
const defaultRegoPolicy = `package referral.unlock

default allow := false

default bypass := false

bypass if {
	input.user.is_admin
}

allow if {
	bypass
}

allow if {
	input.user.balance >= input.threshold
}
`

// OPAEvaluator evaluates the unlock rule using OPA Rego. The query is prepared once.
type OPAEvaluator struct {
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

// NewOPAEvaluator compiles the policy. An empty module selects the built-in default.
// A module that does not compile is an error; the caller should refuse to start.
func NewOPAEvaluator(ctx context.Context, module string, logger *zap.Logger) (*OPAEvaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if module == "" {
		module = defaultRegoPolicy
	}
	q, err := prepare(ctx, module)
	if err != nil {
		return nil, err
	}
	return &OPAEvaluator{query: q, logger: logger}, nil
}

// LoadPolicyFile reads a Rego module from path. An empty path returns "" (built-in default).
func LoadPolicyFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("policy: read %s: %w", path, err)
	}
	return string(b), nil
}

func prepare(ctx context.Context, module string) (rego.PreparedEvalQuery, error) {
	compiler, err := ast.CompileModules(map[string]string{"unlock.rego": module})
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare policy: %w", err)
	}
	return q, nil
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	q, err := prepare(ctx, defaultRegoPolicy)
	if err != nil {
		return err
	}
	rs, err := q.Eval(ctx, rego.EvalInput(buildInput(UnlockInput{Balance: 1, Threshold: 1})))
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateUnlock evaluates the unlock rule. Evaluation errors and malformed results deny.
func (e *OPAEvaluator) EvaluateUnlock(ctx context.Context, in UnlockInput) (UnlockResult, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		e.logger.Warn("policy: evaluation failed, denying", zap.Int64("user_id", in.UserID), zap.Error(err))
		return UnlockResult{}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return UnlockResult{}, fmt.Errorf("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return UnlockResult{}, fmt.Errorf("policy query returned %T, want object", rs[0].Expressions[0].Value)
	}
	allow, _ := doc["allow"].(bool)
	bypass, _ := doc["bypass"].(bool)
	return UnlockResult{Allowed: allow, Bypass: allow && bypass}, nil
}

func buildInput(in UnlockInput) map[string]interface{} {
	return map[string]interface{}{
		"user": map[string]interface{}{
			"id":       in.UserID,
			"balance":  in.Balance,
			"is_admin": in.IsAdmin,
		},
		"threshold": in.Threshold,
	}
}
