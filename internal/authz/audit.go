package authz

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// Entry is one audit record for a denied command.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId,omitempty"`
	Command    string    `json:"command"`
	Missing    string    `json:"missingPermission"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Sink receives audit entries. Implementations may be slow or fail; the
// Auditor shields the request path from both.
type Sink interface {
	Record(entry Entry) error
}

// Auditor writes denial entries to a sink with fire-and-forget semantics:
// the request path never blocks on or fails because of auditing. Sink
// failures are swallowed and counted.
type Auditor struct {
	sink    Sink
	log     *logging.Logger
	dropped atomic.Uint64
}

// NewAuditor creates an auditor. A nil sink defaults to structured logging.
func NewAuditor(sink Sink, log *logging.Logger) *Auditor {
	a := &Auditor{sink: sink, log: log.Sub("audit")}
	if a.sink == nil {
		a.sink = &logSink{log: a.log}
	}
	return a
}

// Denied records a denial asynchronously.
func (a *Auditor) Denied(userID, commandName, missing, reason string) {
	entry := Entry{
		ID:         uuid.New().String(),
		UserID:     userID,
		Command:    commandName,
		Missing:    missing,
		Reason:     reason,
		OccurredAt: time.Now(),
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.dropped.Add(1)
			}
		}()
		if err := a.sink.Record(entry); err != nil {
			a.dropped.Add(1)
		}
	}()
}

// Dropped returns how many entries were lost to sink failures.
func (a *Auditor) Dropped() uint64 {
	return a.dropped.Load()
}

// logSink emits audit entries as structured log events.
type logSink struct {
	log *logging.Logger
}

func (s *logSink) Record(e Entry) error {
	s.log.Warn().
		Str("auditId", e.ID).
		Str("user", e.UserID).
		Str("command", e.Command).
		Str("missingPermission", e.Missing).
		Str("reason", e.Reason).
		Msg("command denied")
	return nil
}
