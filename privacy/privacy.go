package privacy

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Policy decision sentinel errors.
//
// Rules return these to steer evaluation. Use errors.Is to check for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow terminates evaluation with an allow decision.
	Allow = errors.New("dal/privacy: allow rule")

	// Deny terminates evaluation with a deny decision. The call is
	// rejected before it reaches the database.
	Deny = errors.New("dal/privacy: deny rule")

	// Skip passes evaluation to the next rule.
	Skip = errors.New("dal/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
// The returned error wraps Deny and can be checked with errors.Is(err, Deny).
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Operation describes one client call about to be executed.
type Operation struct {
	// Op is the client operation, e.g. "persist" or "queryForList".
	Op string
	// Statement is the statement id: a registry id for named statements,
	// the record type name for entity operations.
	Statement string
	// Entity is the record type of entity operations, nil for named
	// statements.
	Entity reflect.Type
	// Write reports whether the call may modify data.
	Write bool
	// Params are the bound parameters. Rules must not modify them.
	Params map[string]any
}

// Namespace returns the namespace part of a named statement id. Entity
// operations and ids without a namespace yield "".
func (o Operation) Namespace() string {
	if o.Entity != nil {
		return ""
	}
	ns, _, ok := strings.Cut(o.Statement, ".")
	if !ok {
		return ""
	}
	return ns
}

// Rule decides whether an operation may run.
type Rule interface {
	Eval(context.Context, Operation) error
}

// RuleFunc type is an adapter which allows the use of ordinary functions
// as rules.
type RuleFunc func(context.Context, Operation) error

// Eval returns f(ctx, op).
func (f RuleFunc) Eval(ctx context.Context, op Operation) error {
	return f(ctx, op)
}

// Policy combines rules evaluated in order. The first rule that does not
// skip decides; an Allow decision yields nil. A policy whose rules all skip
// allows the operation.
type Policy []Rule

// Eval evaluates the policy. A decision attached to ctx with
// DecisionContext overrides the rules.
func (p Policy) Eval(ctx context.Context, op Operation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// NewPolicy returns a Policy of rules.
func NewPolicy(rules ...Rule) Policy {
	return Policy(rules)
}

// IsDenied reports whether err carries a Deny decision.
func IsDenied(err error) bool {
	return errors.Is(err, Deny)
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function. Returning
// nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ Operation) error {
		return eval(ctx)
	})
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) Eval(context.Context, Operation) error {
	return f.decision
}
