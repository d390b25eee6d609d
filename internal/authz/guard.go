// Package authz resolves a caller's effective permission set and checks it
// against the single permission a command requires.
package authz

import (
	"sort"
	"strings"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Missing is the required permission absent from the caller's effective
	// set. Set only on denial.
	Missing string
	// Reason is a short machine-readable denial reason.
	Reason string
}

// DefaultRoles is the built-in role→permission-set table. Deployments can
// replace or extend it via configuration.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"reader":   {"*.read"},
		"operator": {"*.read", "volume.*", "pool.*", "snapshot.*"},
		"admin":    {"*"},
	}
}

// Guard performs pure, side-effect-free permission checks. The only
// exception is a fire-and-forget audit entry on denial.
type Guard struct {
	roles map[string][]string
	audit *Auditor
	log   *logging.Logger
}

// NewGuard creates a guard with the given role table. A nil table falls
// back to DefaultRoles. Role names are matched case-insensitively.
func NewGuard(roles map[string][]string, audit *Auditor, log *logging.Logger) *Guard {
	if roles == nil {
		roles = DefaultRoles()
	}
	normalized := make(map[string][]string, len(roles))
	for name, perms := range roles {
		normalized[strings.ToLower(name)] = perms
	}
	return &Guard{roles: normalized, audit: audit, log: log.Sub("authz")}
}

// Check reports whether the identity may run the command. It is evaluated
// exactly once per inbound message, before any session mutation or remote
// call, including turns that merely supply a missing parameter, because
// role membership can change between turns.
func (g *Guard) Check(identity *domain.UserIdentity, def *command.Definition) Decision {
	if identity == nil || identity.UserID == "" {
		d := Decision{Allowed: false, Missing: def.Permission, Reason: "unauthenticated"}
		g.recordDenial("", def, d)
		return d
	}

	for _, grant := range g.EffectiveSet(identity) {
		if permissionMatches(grant, def.Permission) {
			return Decision{Allowed: true}
		}
	}

	d := Decision{Allowed: false, Missing: def.Permission, Reason: "missing permission"}
	g.recordDenial(identity.UserID, def, d)
	return d
}

// EffectiveSet computes the union of the identity's direct grants and the
// permissions implied by each held role, deduplicated and sorted.
func (g *Guard) EffectiveSet(identity *domain.UserIdentity) []string {
	set := make(map[string]struct{})
	for _, grant := range identity.Grants {
		set[grant] = struct{}{}
	}
	for _, role := range identity.Roles {
		for _, perm := range g.roles[strings.ToLower(role)] {
			set[perm] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

func (g *Guard) recordDenial(userID string, def *command.Definition, d Decision) {
	if g.audit != nil {
		g.audit.Denied(userID, def.Name, d.Missing, d.Reason)
	}
}

// permissionMatches reports whether a granted permission satisfies a
// required one. Grants may carry a single wildcard segment: "*" matches
// everything, "resource.*" matches any action on the resource, and
// "*.read" matches the read action on any resource.
func permissionMatches(grant, required string) bool {
	if grant == required || grant == "*" {
		return true
	}

	gRes, gAct, ok := splitPerm(grant)
	if !ok {
		return false
	}
	rRes, rAct, ok := splitPerm(required)
	if !ok {
		return false
	}

	resOK := gRes == "*" || gRes == rRes
	actOK := gAct == "*" || gAct == rAct
	return resOK && actOK
}

func splitPerm(p string) (resource, action string, ok bool) {
	i := strings.IndexByte(p, '.')
	if i <= 0 || i == len(p)-1 {
		return "", "", false
	}
	return p[:i], p[i+1:], true
}
