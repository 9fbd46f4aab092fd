// Package privacy provides authorization policies evaluated by the client
// before a call reaches the database.
//
// A Policy is an ordered list of rules. Each rule returns Allow, Deny or
// Skip for the Operation about to run:
//
//   - Allow grants access and stops evaluation;
//   - Deny rejects the call and stops evaluation;
//   - Skip, or nil, continues with the next rule.
//
// A policy whose rules all skip allows the call. Policies are installed on
// a client with client.WithPolicy:
//
//	policy := privacy.NewPolicy(
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.TenantRule("tenantId"),
//	    privacy.OnReads(privacy.AlwaysAllowRule()),
//	    privacy.IsOwner("userId"),
//	    privacy.AlwaysDenyRule(),
//	)
//	c, err := client.New(drv, reg, client.WithPolicy(policy))
//
// The viewer travels in the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "42", Roles: []string{"user"}})
//
// Denied calls return an error wrapping Deny; check it with IsDenied or
// errors.Is(err, privacy.Deny). DecisionContext attaches a decision to a
// context that overrides every policy, which is how trusted code paths
// bypass authorization:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
