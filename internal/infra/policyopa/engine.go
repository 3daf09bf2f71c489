// Package policyopa evaluates an operator-supplied Rego bundle before any
// vault session is opened. The bundle is optional; without one, access
// control is the built-in state machine alone.
package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"keepsafe/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.keepsafe.access.result"

type Engine struct {
	query    rego.PreparedEvalQuery
	bundleID string
}

// NewEngineFromBundlePath loads and compiles the bundle once at startup.
// Compile errors surface here, not per-request.
func NewEngineFromBundlePath(ctx context.Context, bundlePath, bundleID string) (*Engine, error) {
	if bundlePath == "" {
		return nil, errors.New("bundle path is required")
	}
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared, bundleID: bundleID}, nil
}

func (e *Engine) BundleID() string { return e.bundleID }

func (e *Engine) Evaluate(ctx context.Context, input domain.AccessInput) (domain.PolicyResult, error) {
	if e == nil {
		return domain.PolicyResult{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.PolicyResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyResult{}, errors.New("empty policy result")
	}
	result, err := decodePolicyResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.PolicyResult{}, err
	}
	normalizePolicyResult(&result)
	return result, nil
}

func decodePolicyResult(value any) (domain.PolicyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.PolicyResult{}, err
	}
	var result domain.PolicyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.PolicyResult{}, err
	}
	return result, nil
}

func normalizePolicyResult(result *domain.PolicyResult) {
	if result == nil {
		return
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code == result.Deny[j].Code {
			return result.Deny[i].Message < result.Deny[j].Message
		}
		return result.Deny[i].Code < result.Deny[j].Code
	})
}
