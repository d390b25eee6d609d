// Package engine drives a conversational command through parameter
// collection to execution. Each inbound turn is resolved against the
// command registry, authorized, merged with any pending session, and,
// once the parameter set is complete, dispatched through the remote
// tool-calling boundary.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/authz"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/dispatch"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/identity"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/render"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/store"
)

// DefaultSessionTTL is the idle window granted to a pending dialog. It is
// set at session creation and extended only by successful parameter turns,
// which bounds total multi-turn command duration.
const DefaultSessionTTL = 5 * time.Minute

// cancelKeyword abandons the pending dialog in any state.
const cancelKeyword = "cancel"

// Invoker is the dispatch boundary the engine drives once a command's
// parameter set is complete.
type Invoker interface {
	Invoke(ctx context.Context, def *command.Definition, params map[string]string) dispatch.Result
}

// Config holds engine tunables.
type Config struct {
	// SessionTTL overrides DefaultSessionTTL when positive.
	SessionTTL time.Duration
}

// Engine is the conversational command dispatch engine. One Engine serves
// all conversations; per-key locking keeps turns on the same conversation
// serialized while unrelated conversations proceed in parallel.
type Engine struct {
	registry *command.Registry
	guard    *authz.Guard
	sessions store.SessionStore
	invoker  Invoker
	renderer *render.Renderer
	resolver identity.Resolver
	locks    *keyLocks
	ttl      time.Duration
	log      *logging.Logger
	now      func() time.Time
}

// New creates an engine.
func New(
	cfg Config,
	registry *command.Registry,
	guard *authz.Guard,
	sessions store.SessionStore,
	invoker Invoker,
	renderer *render.Renderer,
	resolver identity.Resolver,
	log *logging.Logger,
) *Engine {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Engine{
		registry: registry,
		guard:    guard,
		sessions: sessions,
		invoker:  invoker,
		renderer: renderer,
		resolver: resolver,
		locks:    newKeyLocks(),
		ttl:      ttl,
		log:      log.Sub("engine"),
		now:      time.Now,
	}
}

// Handle processes one inbound turn and always produces a response: no
// failure path is fatal to the process.
func (e *Engine) Handle(ctx context.Context, msg domain.InboundMessage) domain.RenderedResponse {
	key := domain.SessionKey{ConversationID: msg.ConversationID, UserID: msg.UserID}
	release := e.locks.acquire(key.String())
	defer release()

	caller, err := e.resolver.Resolve(ctx, msg)
	if err != nil {
		e.log.Debug().Str("user", msg.UserID).Err(err).Msg("identity resolution failed")
		caller = nil // unauthenticated: denied for every command
	}

	text := strings.TrimSpace(msg.Body)

	if strings.EqualFold(text, cancelKeyword) {
		return e.handleCancel(key)
	}

	// A session lookup failure of any kind means the dialog cannot be
	// safely resumed: fail toward restarting rather than hanging or
	// applying stale input.
	sess, serr := e.sessions.Get(key)
	expired := serr != nil
	if serr != nil && serr != store.ErrExpired {
		e.log.Warn().Err(serr).Str("key", key.String()).Msg("session lookup failed")
	}

	parsed, parseErr := command.Parse(text)
	var def *command.Definition
	if parseErr == nil {
		def, _ = e.registry.Lookup(parsed.Command)
	}

	switch {
	case sess != nil && def == nil:
		// Pending dialog and the text is not a new command: it is the
		// value for the awaited parameter.
		return e.handleParameterTurn(ctx, caller, sess, text)

	case sess != nil && def != nil:
		// A new recognized command abandons the pending dialog. Silent
		// loss of partial input is preferred over ambiguous merging.
		e.log.Info().
			Str("key", key.String()).
			Str("abandoned", sess.Command).
			Str("command", def.Name).
			Msg("pending dialog replaced by new command")
		if err := e.sessions.Delete(key); err != nil {
			e.log.Warn().Err(err).Msg("deleting replaced session")
		}
		return e.handleNewCommand(ctx, caller, key, def, parsed)

	case expired && def == nil:
		// The dialog this text belonged to is gone; never apply the
		// value silently.
		return domain.RenderedResponse{Text: "Your session expired, please start over."}

	case parseErr != nil:
		return domain.RenderedResponse{Text: fmt.Sprintf("I couldn't read that: %v. Type help to see available commands.", parseErr)}

	case def == nil:
		return domain.RenderedResponse{Text: fmt.Sprintf("Unknown command %q. Type help to see available commands.", parsed.Command)}

	default:
		return e.handleNewCommand(ctx, caller, key, def, parsed)
	}
}

// handleCancel ends any pending dialog.
func (e *Engine) handleCancel(key domain.SessionKey) domain.RenderedResponse {
	sess, err := e.sessions.Get(key)
	if err != nil || sess == nil {
		return domain.RenderedResponse{Text: "Nothing to cancel."}
	}
	if err := e.sessions.Delete(key); err != nil {
		e.log.Warn().Err(err).Str("key", key.String()).Msg("deleting cancelled session")
	}
	return domain.RenderedResponse{Text: fmt.Sprintf("Okay, I've cancelled the pending %s command.", sess.Command)}
}

// handleNewCommand starts a dialog from scratch: authorize, validate the
// parameters already supplied, then either execute directly or persist a
// session and prompt for the first missing parameter.
func (e *Engine) handleNewCommand(
	ctx context.Context,
	caller *domain.UserIdentity,
	key domain.SessionKey,
	def *command.Definition,
	parsed command.Parsed,
) domain.RenderedResponse {
	if resp, ok := e.authorize(caller, def); !ok {
		return resp
	}

	if len(parsed.Positional) > 0 {
		return domain.RenderedResponse{Text: fmt.Sprintf(
			"%s does not take positional input; unexpected: %s. Parameters use the --name value form.",
			def.Name, strings.Join(parsed.Positional, " "),
		)}
	}

	if def.Local {
		return e.handleLocal(def)
	}

	// Validate every supplied value now, so a bad flag is reported on
	// the turn that carried it. Unknown keys are caught here too: the
	// parser preserved them precisely so this check can report them.
	values := make(map[string]string, len(parsed.Params))
	for name, raw := range parsed.Params {
		spec, ok := def.Param(name)
		if !ok {
			return domain.RenderedResponse{Text: fmt.Sprintf("Invalid input: parameter %q is not accepted by %s.", name, def.Name)}
		}
		canonical, err := dispatch.ValidateValue(spec, raw)
		if err != nil {
			return domain.RenderedResponse{Text: "Invalid input: " + err.Error()}
		}
		values[name] = canonical
	}

	missing := def.MissingParams(values)
	if len(missing) == 0 {
		// Nothing to collect: execute without persisting a session.
		return e.execute(ctx, key, def, values)
	}

	now := e.now()
	sess := &domain.ConversationSession{
		ID:        uuid.New().String(),
		Key:       key,
		Command:   def.Name,
		Params:    values,
		Awaiting:  missing[0],
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.sessions.Put(sess); err != nil {
		e.log.Error().Err(err).Str("key", key.String()).Msg("storing session")
		return domain.RenderedResponse{Text: "I couldn't start that command, please try again."}
	}

	e.log.Info().
		Str("key", key.String()).
		Str("command", def.Name).
		Strs("missing", missing).
		Msg("collecting parameters")

	return e.prompt(def, missing[0], "")
}

// handleParameterTurn treats the inbound text as the value for the
// currently awaited parameter.
func (e *Engine) handleParameterTurn(
	ctx context.Context,
	caller *domain.UserIdentity,
	sess *domain.ConversationSession,
	text string,
) domain.RenderedResponse {
	def, err := e.registry.Lookup(sess.Command)
	if err != nil {
		// The catalog no longer knows the pending command; the dialog
		// cannot continue.
		_ = e.sessions.Delete(sess.Key)
		return domain.RenderedResponse{Text: fmt.Sprintf("Unknown command %q. Type help to see available commands.", sess.Command)}
	}

	// Re-check on every turn: role membership can change mid-dialog.
	if resp, ok := e.authorize(caller, def); !ok {
		return resp
	}

	spec, ok := def.Param(sess.Awaiting)
	if !ok {
		_ = e.sessions.Delete(sess.Key)
		return domain.RenderedResponse{Text: "I lost track of that dialog, please start over."}
	}

	canonical, verr := dispatch.ValidateValue(spec, text)
	if verr != nil {
		// Stay on the same parameter; the user may retry until the
		// session expires. The idle window is not extended.
		return e.prompt(def, spec.Name, verr.Error())
	}

	sess.Params[spec.Name] = canonical
	missing := def.MissingParams(sess.Params)

	if len(missing) > 0 {
		sess.Awaiting = missing[0]
		sess.ExpiresAt = e.now().Add(e.ttl) // successful turn extends the window
		if err := e.sessions.Put(sess); err != nil {
			e.log.Error().Err(err).Str("key", sess.Key.String()).Msg("updating session")
			return domain.RenderedResponse{Text: "I couldn't save your answer, please start over."}
		}
		return e.prompt(def, missing[0], "")
	}

	// All required parameters present: the session ends now, whatever
	// the dispatch outcome. A failed remote call does not retain the
	// collected parameters for an automatic retry.
	if err := e.sessions.Delete(sess.Key); err != nil {
		e.log.Warn().Err(err).Str("key", sess.Key.String()).Msg("deleting completed session")
	}
	return e.execute(ctx, sess.Key, def, sess.Params)
}

// handleLocal answers commands resolved without a remote call.
func (e *Engine) handleLocal(def *command.Definition) domain.RenderedResponse {
	switch def.Name {
	case "help":
		return e.renderHelp()
	default:
		return domain.RenderedResponse{Text: fmt.Sprintf("%s is not available right now.", def.Name)}
	}
}

func (e *Engine) renderHelp() domain.RenderedResponse {
	defs := e.registry.All()
	card := &domain.Card{Title: "Available commands"}

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, def := range defs {
		usage, err := e.registry.Describe(def.Name)
		if err != nil {
			continue
		}
		b.WriteString("\n" + usage)
		card.Facts = append(card.Facts, domain.Fact{Name: def.Name, Value: def.Description})
	}
	b.WriteString("\nSend cancel at any time to abandon a pending command.")

	return domain.RenderedResponse{Text: b.String(), Card: card}
}

// prompt asks for a parameter, optionally prefixed with a validation error
// from the previous answer.
func (e *Engine) prompt(def *command.Definition, param string, problem string) domain.RenderedResponse {
	spec, _ := def.Param(param)
	question := spec.Prompt
	if question == "" {
		question = fmt.Sprintf("Please provide a value for --%s.", param)
	}

	text := fmt.Sprintf("[%s] %s", def.Name, question)
	if problem != "" {
		text = fmt.Sprintf("[%s] That doesn't look right: %s. %s", def.Name, problem, question)
	}
	return domain.RenderedResponse{Text: text}
}

// execute dispatches the completed command and renders the outcome.
func (e *Engine) execute(
	ctx context.Context,
	key domain.SessionKey,
	def *command.Definition,
	params map[string]string,
) domain.RenderedResponse {
	e.log.Info().
		Str("key", key.String()).
		Str("command", def.Name).
		Str("operation", def.Operation).
		Msg("dispatching command")

	result := e.invoker.Invoke(ctx, def, params)

	e.log.Info().
		Str("key", key.String()).
		Str("operation", def.Operation).
		Str("kind", string(result.Kind)).
		Int("attempts", result.Attempts).
		Msg("dispatch finished")

	return e.renderer.Render(result)
}

// authorize runs the guard and renders a denial. The bool reports whether
// processing may continue.
func (e *Engine) authorize(caller *domain.UserIdentity, def *command.Definition) (domain.RenderedResponse, bool) {
	decision := e.guard.Check(caller, def)
	if decision.Allowed {
		return domain.RenderedResponse{}, true
	}
	if decision.Reason == "unauthenticated" {
		return domain.RenderedResponse{Text: "I couldn't verify your identity, so I can't run commands for you."}, false
	}
	return domain.RenderedResponse{Text: "Insufficient permissions, contact an administrator."}, false
}
