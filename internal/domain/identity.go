package domain

// UserIdentity is the verified caller identity supplied by the identity
// collaborator for a single inbound message. It is never persisted.
type UserIdentity struct {
	UserID         string   `json:"userId"`
	Roles          []string `json:"roles,omitempty"`
	Grants         []string `json:"grants,omitempty"` // explicit permission grants
	TenantID       string   `json:"tenantId,omitempty"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
}
