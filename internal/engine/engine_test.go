package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/authz"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/dispatch"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/identity"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/render"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/store"
)

// invocation records one dispatch crossing the boundary.
type invocation struct {
	Operation string
	Params    map[string]string
}

// fakeInvoker returns scripted results and records every invocation.
type fakeInvoker struct {
	mu      sync.Mutex
	results []dispatch.Result
	calls   []invocation
}

func (f *fakeInvoker) Invoke(_ context.Context, def *command.Definition, params map[string]string) dispatch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	f.calls = append(f.calls, invocation{Operation: def.Operation, Params: cp})

	if len(f.results) > 0 {
		res := f.results[0]
		f.results = f.results[1:]
		res.Operation = def.Operation
		return res
	}
	return dispatch.Result{
		Kind:      dispatch.KindSuccess,
		Operation: def.Operation,
		Payload:   json.RawMessage(`{"ok":true}`),
		Attempts:  1,
	}
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// mutableResolver allows tests to change a user's roles between turns.
type mutableResolver struct {
	mu    sync.Mutex
	users map[string]identity.User
}

func (r *mutableResolver) Resolve(_ context.Context, msg domain.InboundMessage) (*domain.UserIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[msg.UserID]
	if !ok {
		return nil, &identity.ErrUnknownUser{UserID: msg.UserID}
	}
	return &domain.UserIdentity{UserID: msg.UserID, Roles: u.Roles, Grants: u.Grants}, nil
}

func (r *mutableResolver) setRoles(userID string, roles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = identity.User{Roles: roles}
}

type fixture struct {
	eng      *Engine
	store    *store.MemoryStore
	invoker  *fakeInvoker
	resolver *mutableResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")

	f := &fixture{
		store:   store.NewMemoryStore(log),
		invoker: &fakeInvoker{},
		resolver: &mutableResolver{users: map[string]identity.User{
			"alice": {Roles: []string{"admin"}},
			"bob":   {Roles: []string{"reader"}},
			"oscar": {Roles: []string{"operator"}},
		}},
	}
	f.eng = New(
		Config{},
		command.NewRegistry(command.Catalog()),
		authz.NewGuard(nil, authz.NewAuditor(nil, log), log),
		f.store,
		f.invoker,
		render.New(log),
		f.resolver,
		log,
	)
	return f
}

func (f *fixture) send(userID, text string) domain.RenderedResponse {
	return f.eng.Handle(context.Background(), domain.InboundMessage{
		ID:             uuid.New().String(),
		ChannelID:      "test",
		ConversationID: "conv1",
		UserID:         userID,
		Body:           text,
		Timestamp:      time.Now(),
	})
}

func (f *fixture) session(userID string) *domain.ConversationSession {
	sess, err := f.store.Get(domain.SessionKey{ConversationID: "conv1", UserID: userID})
	if err != nil {
		return nil
	}
	return sess
}

// --- immediate execution ---

func TestHandle_CompleteCommandExecutesWithoutSession(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "delete-account --name acct1")
	assert.Contains(t, resp.Text, "Accounts delete")

	require.Equal(t, 1, f.invoker.callCount())
	assert.Equal(t, "anf.accounts.delete", f.invoker.calls[0].Operation)
	assert.Equal(t, map[string]string{"name": "acct1"}, f.invoker.calls[0].Params)
	assert.Zero(t, f.store.Len(), "no session is persisted when nothing is missing")
}

func TestHandle_NoParamCommand(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "list-accounts")
	require.Equal(t, 1, f.invoker.callCount())
	assert.Empty(t, f.invoker.calls[0].Params)
}

// --- parameter collection ---

func TestHandle_MissingParametersStartDialog(t *testing.T) {
	// Scenario: create-volume with only --size supplied.
	f := newFixture(t)

	resp := f.send("alice", "create-volume --size 100")
	assert.Contains(t, resp.Text, "[create-volume]")
	assert.Contains(t, resp.Text, "called", "first missing parameter (name) is prompted")

	sess := f.session("alice")
	require.NotNil(t, sess)
	assert.Equal(t, "create-volume", sess.Command)
	assert.Equal(t, "name", sess.Awaiting)
	assert.Equal(t, map[string]string{"size": "100"}, sess.Params)
	assert.Zero(t, f.invoker.callCount())
}

func TestHandle_MultiTurnCompletion(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "create-volume --size 100")
	f.send("alice", "vol1")      // name
	f.send("alice", "premium")   // service-level, canonicalized
	f.send("alice", "acct1")     // account
	resp := f.send("alice", "pool1") // final parameter

	assert.Contains(t, resp.Text, "Volumes create")
	require.Equal(t, 1, f.invoker.callCount())
	assert.Equal(t, map[string]string{
		"name": "vol1", "size": "100", "service-level": "Premium",
		"account": "acct1", "pool": "pool1",
	}, f.invoker.calls[0].Params)
	assert.Nil(t, f.session("alice"), "session deleted on completion")
}

func TestHandle_PromptsFollowDeclarationOrder(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "create-pool")
	prompts := []string{"account", "name", "location", "size-tb", "service-level"}
	values := []string{"acct1", "pool1", "eastus", "4", "Ultra"}

	for i, v := range values[:len(values)-1] {
		assert.Equal(t, prompts[i], f.session("alice").Awaiting)
		f.send("alice", v)
	}
	assert.Equal(t, "service-level", f.session("alice").Awaiting)
	f.send("alice", values[len(values)-1])

	require.Equal(t, 1, f.invoker.callCount())
	assert.Equal(t, "anf.pools.create", f.invoker.calls[0].Operation)
}

func TestHandle_InvalidValueRepromptsWithoutAdvancing(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "resize-volume --account acct1 --pool pool1 --name vol1")
	resp := f.send("alice", "lots")
	assert.Contains(t, resp.Text, "doesn't look right")
	assert.Contains(t, resp.Text, "whole number")
	assert.Equal(t, "size", f.session("alice").Awaiting, "still awaiting the same parameter")

	// The user may retry indefinitely until expiry.
	f.send("alice", "also-not-a-number")
	resp = f.send("alice", "200")
	assert.Contains(t, resp.Text, "Volumes update")
	require.Equal(t, 1, f.invoker.callCount())
	assert.Equal(t, "200", f.invoker.calls[0].Params["size"])
}

func TestHandle_NewCommandReplacesPendingDialog(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "create-volume --size 100")
	require.NotNil(t, f.session("alice"))

	// A recognized command name abandons the dialog; partial input is
	// never merged into the new command.
	resp := f.send("alice", "list-accounts")
	assert.Contains(t, resp.Text, "Accounts list")
	require.Equal(t, 1, f.invoker.callCount())
	assert.Empty(t, f.invoker.calls[0].Params)
	assert.Nil(t, f.session("alice"))
}

// --- cancellation ---

func TestHandle_CancelDeletesSession(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "create-volume --size 100")
	resp := f.send("alice", "cancel")
	assert.Contains(t, resp.Text, "cancelled the pending create-volume")
	assert.Nil(t, f.session("alice"))

	resp = f.send("alice", "CANCEL")
	assert.Equal(t, "Nothing to cancel.", resp.Text)
}

// --- expiry ---

func putExpiredSession(t *testing.T, f *fixture, userID string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.Put(&domain.ConversationSession{
		ID:        uuid.New().String(),
		Key:       domain.SessionKey{ConversationID: "conv1", UserID: userID},
		Command:   "create-volume",
		Params:    map[string]string{"size": "100"},
		Awaiting:  "name",
		CreatedAt: now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}))
}

func TestHandle_ExpiredSessionValueTurn(t *testing.T) {
	// Scenario: dialog idles past the window, then the user sends the
	// awaited value.
	f := newFixture(t)
	putExpiredSession(t, f, "alice")

	resp := f.send("alice", "vol1")
	assert.Equal(t, "Your session expired, please start over.", resp.Text)
	assert.Zero(t, f.invoker.callCount(), "no partial value is silently applied")
	assert.Nil(t, f.session("alice"))
}

func TestHandle_ExpiredSessionNewCommandStartsFresh(t *testing.T) {
	f := newFixture(t)
	putExpiredSession(t, f, "alice")

	resp := f.send("alice", "list-accounts")
	assert.Contains(t, resp.Text, "Accounts list")
	require.Equal(t, 1, f.invoker.callCount())
	assert.Empty(t, f.invoker.calls[0].Params, "stale partial input is discarded")
}

func TestHandle_SuccessfulTurnExtendsWindow(t *testing.T) {
	f := newFixture(t)

	f.send("alice", "create-volume --size 100")
	before := f.session("alice").ExpiresAt

	time.Sleep(10 * time.Millisecond)
	f.send("alice", "vol1")
	after := f.session("alice").ExpiresAt
	assert.True(t, after.After(before), "successful parameter turn extends expiry")

	// A failed validation turn does not.
	f.send("alice", "not a level!!")
	assert.Equal(t, after, f.session("alice").ExpiresAt)
}

// --- authorization ---

func TestHandle_PermissionDenied(t *testing.T) {
	// Scenario: a reader issuing delete-account.
	f := newFixture(t)

	resp := f.send("bob", "delete-account --name x")
	assert.Equal(t, "Insufficient permissions, contact an administrator.", resp.Text)
	assert.Zero(t, f.invoker.callCount(), "no remote call on denial")
	assert.Nil(t, f.session("bob"), "no session created on denial")
}

func TestHandle_ReaderMayRead(t *testing.T) {
	f := newFixture(t)

	f.send("bob", "list-accounts")
	assert.Equal(t, 1, f.invoker.callCount())
}

func TestHandle_UnauthenticatedDeniedEverything(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"help", "list-accounts"} {
		resp := f.send("mallory", text)
		assert.Contains(t, resp.Text, "couldn't verify your identity")
	}
	assert.Zero(t, f.invoker.callCount())
}

func TestHandle_AuthorizationRecheckedEachTurn(t *testing.T) {
	f := newFixture(t)

	f.send("oscar", "create-volume --size 100")
	require.NotNil(t, f.session("oscar"))

	// Role revoked mid-dialog: the next turn is denied even though the
	// command was authorized when the dialog began.
	f.resolver.setRoles("oscar", "reader")
	resp := f.send("oscar", "vol1")
	assert.Equal(t, "Insufficient permissions, contact an administrator.", resp.Text)
	assert.Zero(t, f.invoker.callCount())

	// Restoring the role lets the dialog continue where it left off.
	f.resolver.setRoles("oscar", "operator")
	f.send("oscar", "vol1")
	assert.Equal(t, "service-level", f.session("oscar").Awaiting)
}

// --- dispatch outcomes ---

func TestHandle_TransientFailureOutcomeRendered(t *testing.T) {
	// The dispatcher owns retries; the engine renders whatever final
	// result it reports. A success after transient failures renders as
	// success.
	f := newFixture(t)
	f.invoker.results = []dispatch.Result{{
		Kind:     dispatch.KindSuccess,
		Payload:  json.RawMessage(`{"name":"vol1"}`),
		Attempts: 3,
	}}

	resp := f.send("alice", "delete-account --name acct1")
	assert.Contains(t, resp.Text, "Accounts delete")
	assert.NotContains(t, resp.Text, "rate limit")
}

func TestHandle_FailedDispatchDoesNotRetainParameters(t *testing.T) {
	f := newFixture(t)
	f.invoker.results = []dispatch.Result{{Kind: dispatch.KindTimeout}}

	f.send("alice", "create-volume --size 100")
	f.send("alice", "vol1")
	f.send("alice", "premium")
	f.send("alice", "acct1")
	resp := f.send("alice", "pool1")

	assert.Contains(t, resp.Text, "timed out")
	assert.Nil(t, f.session("alice"), "failed dispatch still ends the session")

	// The next message starts from scratch.
	resp = f.send("alice", "vol1")
	assert.Contains(t, resp.Text, "Unknown command")
}

// --- local handling ---

func TestHandle_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "make-me-a-sandwich")
	assert.Contains(t, resp.Text, `Unknown command "make-me-a-sandwich"`)
	assert.Contains(t, resp.Text, "help")
	assert.Zero(t, f.invoker.callCount())
}

func TestHandle_ParseError(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", `create-volume --name "unterminated`)
	assert.Contains(t, resp.Text, "couldn't read that")
}

func TestHandle_Help(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "help")
	assert.Contains(t, resp.Text, "create-volume")
	assert.Contains(t, resp.Text, "list-snapshots")
	require.NotNil(t, resp.Card)
	assert.Equal(t, "Available commands", resp.Card.Title)
	assert.Zero(t, f.invoker.callCount())
}

func TestHandle_PositionalInputRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "list-accounts please")
	assert.Contains(t, resp.Text, "does not take positional input")
	assert.Zero(t, f.invoker.callCount())
}

func TestHandle_UnknownFlagRejectedBeforeDialog(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "create-volume --colour red")
	assert.Contains(t, resp.Text, `"colour" is not accepted`)
	assert.Nil(t, f.session("alice"))
}

func TestHandle_InvalidSuppliedValueRejectedBeforeDialog(t *testing.T) {
	f := newFixture(t)

	resp := f.send("alice", "create-volume --size lots")
	assert.Contains(t, resp.Text, "whole number")
	assert.Nil(t, f.session("alice"))
}

// --- isolation & concurrency ---

func TestHandle_ConversationsAreIsolated(t *testing.T) {
	f := newFixture(t)

	f.eng.Handle(context.Background(), domain.InboundMessage{
		ConversationID: "convA", UserID: "alice", Body: "create-volume --size 100",
	})
	f.eng.Handle(context.Background(), domain.InboundMessage{
		ConversationID: "convB", UserID: "alice", Body: "delete-account",
	})

	sessA, err := f.store.Get(domain.SessionKey{ConversationID: "convA", UserID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, sessA)
	assert.Equal(t, "create-volume", sessA.Command)

	sessB, err := f.store.Get(domain.SessionKey{ConversationID: "convB", UserID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, sessB)
	assert.Equal(t, "delete-account", sessB.Command)
}

func TestHandle_ConcurrentTurnsOnDistinctConversations(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.eng.Handle(context.Background(), domain.InboundMessage{
				ConversationID: string(rune('a' + i)),
				UserID:         "alice",
				Body:           "list-accounts",
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, f.invoker.callCount())
}
