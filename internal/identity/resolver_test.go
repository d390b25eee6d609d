package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
)

func TestStaticResolver_KnownUser(t *testing.T) {
	r := NewStaticResolver(map[string]User{
		"alice": {Roles: []string{"operator"}, Grants: []string{"account.read"}},
	}, "tenant-1", "sub-1")

	id, err := r.Resolve(context.Background(), domain.InboundMessage{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", id.UserID)
	assert.Equal(t, []string{"operator"}, id.Roles)
	assert.Equal(t, []string{"account.read"}, id.Grants)
	assert.Equal(t, "tenant-1", id.TenantID)
	assert.Equal(t, "sub-1", id.SubscriptionID)
}

func TestStaticResolver_UnknownUser(t *testing.T) {
	r := NewStaticResolver(nil, "", "")

	for _, userID := range []string{"mallory", ""} {
		id, err := r.Resolve(context.Background(), domain.InboundMessage{UserID: userID})
		assert.Nil(t, id)
		var unknown *ErrUnknownUser
		require.ErrorAs(t, err, &unknown)
	}
}
