// Package identity resolves a verified caller identity for each inbound
// message. The real provider is an external collaborator; this package
// defines the boundary and ships a config-backed static resolver.
package identity

import (
	"context"
	"fmt"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
)

// Resolver supplies a verified identity for an inbound message. A non-nil
// error means the caller could not be resolved and must be treated as
// unauthenticated: denied for every command, including help.
type Resolver interface {
	Resolve(ctx context.Context, msg domain.InboundMessage) (*domain.UserIdentity, error)
}

// ErrUnknownUser reports a caller absent from the static user table.
type ErrUnknownUser struct {
	UserID string
}

func (e *ErrUnknownUser) Error() string {
	return fmt.Sprintf("unknown user %q", e.UserID)
}

// User is one entry in the static user table.
type User struct {
	Roles  []string
	Grants []string
}

// StaticResolver resolves identities from a fixed user table, scoped to a
// single tenant and subscription.
type StaticResolver struct {
	users          map[string]User
	tenantID       string
	subscriptionID string
}

// NewStaticResolver creates a resolver over the given user table.
func NewStaticResolver(users map[string]User, tenantID, subscriptionID string) *StaticResolver {
	if users == nil {
		users = map[string]User{}
	}
	return &StaticResolver{users: users, tenantID: tenantID, subscriptionID: subscriptionID}
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, msg domain.InboundMessage) (*domain.UserIdentity, error) {
	if msg.UserID == "" {
		return nil, &ErrUnknownUser{UserID: msg.UserID}
	}
	user, ok := r.users[msg.UserID]
	if !ok {
		return nil, &ErrUnknownUser{UserID: msg.UserID}
	}
	return &domain.UserIdentity{
		UserID:         msg.UserID,
		Roles:          user.Roles,
		Grants:         user.Grants,
		TenantID:       r.tenantID,
		SubscriptionID: r.subscriptionID,
	}, nil
}
