package authz

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

func testGuard(t *testing.T) *Guard {
	t.Helper()
	log := logging.New(nil, "silent")
	return NewGuard(nil, NewAuditor(nil, log), log)
}

func defFor(t *testing.T, name string) *command.Definition {
	t.Helper()
	def, err := command.NewRegistry(command.Catalog()).Lookup(name)
	require.NoError(t, err)
	return def
}

// --- permission matching ---

func TestPermissionMatches(t *testing.T) {
	tests := []struct {
		grant    string
		required string
		want     bool
	}{
		{"volume.write", "volume.write", true},
		{"volume.write", "volume.read", false},
		{"*", "volume.write", true},
		{"volume.*", "volume.write", true},
		{"volume.*", "pool.write", false},
		{"*.read", "volume.read", true},
		{"*.read", "volume.write", false},
		{"*.*", "volume.write", true},
		{"volume", "volume.write", false},
		{"volume.", "volume.write", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, permissionMatches(tt.grant, tt.required),
			"grant %q vs required %q", tt.grant, tt.required)
	}
}

// --- Check ---

func TestCheck_RoleDerived(t *testing.T) {
	g := testGuard(t)

	reader := &domain.UserIdentity{UserID: "u1", Roles: []string{"Reader"}}
	assert.True(t, g.Check(reader, defFor(t, "list-volumes")).Allowed)

	// Reader holds only *.read: writes are denied.
	d := g.Check(reader, defFor(t, "delete-account"))
	assert.False(t, d.Allowed)
	assert.Equal(t, "account.delete", d.Missing)
}

func TestCheck_OperatorAndAdmin(t *testing.T) {
	g := testGuard(t)

	op := &domain.UserIdentity{UserID: "u2", Roles: []string{"operator"}}
	assert.True(t, g.Check(op, defFor(t, "create-volume")).Allowed)
	assert.True(t, g.Check(op, defFor(t, "delete-pool")).Allowed)
	assert.False(t, g.Check(op, defFor(t, "delete-account")).Allowed)

	admin := &domain.UserIdentity{UserID: "u3", Roles: []string{"admin"}}
	for _, def := range command.NewRegistry(command.Catalog()).All() {
		assert.True(t, g.Check(admin, def).Allowed, def.Name)
	}
}

func TestCheck_DirectGrants(t *testing.T) {
	g := testGuard(t)

	id := &domain.UserIdentity{UserID: "u4", Grants: []string{"account.delete"}}
	assert.True(t, g.Check(id, defFor(t, "delete-account")).Allowed)
	assert.False(t, g.Check(id, defFor(t, "create-account")).Allowed)
}

func TestCheck_UnauthenticatedDeniedEverything(t *testing.T) {
	g := testGuard(t)

	for _, identity := range []*domain.UserIdentity{nil, {}} {
		d := g.Check(identity, defFor(t, "help"))
		assert.False(t, d.Allowed)
		assert.Equal(t, "unauthenticated", d.Reason)
	}
}

func TestEffectiveSet_UnionDeduplicated(t *testing.T) {
	g := testGuard(t)

	id := &domain.UserIdentity{
		UserID: "u5",
		Roles:  []string{"reader", "operator"},
		Grants: []string{"*.read", "account.write"},
	}
	set := g.EffectiveSet(id)
	assert.Equal(t, []string{"*.read", "account.write", "pool.*", "snapshot.*", "volume.*"}, set)
}

func TestCheck_UnknownRoleGrantsNothing(t *testing.T) {
	g := testGuard(t)

	id := &domain.UserIdentity{UserID: "u6", Roles: []string{"superuser"}}
	assert.False(t, g.Check(id, defFor(t, "list-accounts")).Allowed)
}

// --- auditing ---

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
	fail    error
}

func (c *captureSink) Record(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCheck_DenialIsAudited(t *testing.T) {
	log := logging.New(nil, "silent")
	sink := &captureSink{}
	g := NewGuard(nil, NewAuditor(sink, log), log)

	id := &domain.UserIdentity{UserID: "u7", Roles: []string{"reader"}}
	g.Check(id, defFor(t, "delete-account"))

	waitFor(t, func() bool { return sink.count() == 1 })
	sink.mu.Lock()
	entry := sink.entries[0]
	sink.mu.Unlock()
	assert.Equal(t, "u7", entry.UserID)
	assert.Equal(t, "delete-account", entry.Command)
	assert.Equal(t, "account.delete", entry.Missing)
	assert.NotEmpty(t, entry.ID)
}

func TestCheck_AllowedIsNotAudited(t *testing.T) {
	log := logging.New(nil, "silent")
	sink := &captureSink{}
	g := NewGuard(nil, NewAuditor(sink, log), log)

	id := &domain.UserIdentity{UserID: "u8", Roles: []string{"admin"}}
	g.Check(id, defFor(t, "delete-account"))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sink.count())
}

func TestAuditor_SinkFailuresSwallowedAndCounted(t *testing.T) {
	log := logging.New(nil, "silent")
	sink := &captureSink{fail: errors.New("sink down")}
	auditor := NewAuditor(sink, log)

	auditor.Denied("u9", "delete-account", "account.delete", "missing permission")
	auditor.Denied("u9", "delete-pool", "pool.delete", "missing permission")

	waitFor(t, func() bool { return auditor.Dropped() == 2 })
}
