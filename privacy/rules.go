package privacy

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// OnOperation evaluates rule only for the given client operations.
func OnOperation(rule Rule, ops ...string) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		if slices.Contains(ops, op.Op) {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// OnWrites evaluates rule only for operations that may modify data.
func OnWrites(rule Rule) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		if op.Write {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// OnReads evaluates rule only for read operations.
func OnReads(rule Rule) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		if !op.Write {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// OnNamespace evaluates rule only for statements of the given namespaces.
func OnNamespace(rule Rule, namespaces ...string) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		if slices.Contains(namespaces, op.Namespace()) {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// OnStatements evaluates rule only for statement ids with one of the given
// prefixes.
func OnStatements(rule Rule, prefixes ...string) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		for _, p := range prefixes {
			if strings.HasPrefix(op.Statement, p) {
				return rule.Eval(ctx, op)
			}
		}
		return Skip
	})
}

// DenyOperationRule returns a rule denying the given client operations.
func DenyOperationRule(ops ...string) Rule {
	rule := RuleFunc(func(_ context.Context, op Operation) error {
		return Denyf("dal/privacy: operation %s is not allowed", op.Op)
	})
	return OnOperation(rule, ops...)
}

// AllowOperationRule returns a rule allowing the given client operations.
func AllowOperationRule(ops ...string) Rule {
	return OnOperation(fixedDecision{Allow}, ops...)
}

// DenyWritesRule returns a rule denying every operation that may modify
// data, for read-only clients.
func DenyWritesRule() Rule {
	return OnWrites(RuleFunc(func(_ context.Context, op Operation) error {
		return Denyf("dal/privacy: %s of %s on a read-only client", op.Op, op.Statement)
	}))
}

// Viewer represents the authenticated user making a request.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier, or "" if not
	// applicable.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context, or nil.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies access if no viewer is present
// in the context. It is typically the first rule of a policy:
//
//	privacy.NewPolicy(
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.OnReads(privacy.AlwaysAllowRule()),
//	    privacy.AlwaysDenyRule(),
//	)
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("dal/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has role, and
// skips otherwise.
func HasRole(role string) Rule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of
// roles, and skips otherwise.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		for _, role := range viewer.GetRoles() {
			if slices.Contains(roles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a rule that allows access if the parameter param equals
// the viewer's ID. Operations without the parameter are skipped.
func IsOwner(param string) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		v, ok := op.Params[param]
		if !ok || v == nil {
			return Skip
		}
		if paramString(v) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a rule isolating tenants: an operation whose parameter
// param differs from the viewer's tenant is denied. Operations without the
// parameter, and viewers without a tenant, are skipped.
func TenantRule(param string) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		v, ok := op.Params[param]
		if !ok || v == nil {
			return Skip
		}
		if paramString(v) != viewer.GetTenantID() {
			return Denyf("dal/privacy: tenant mismatch")
		}
		return Skip
	})
}

func paramString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
