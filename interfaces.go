// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observable

// CallbackID identifies one logical remote subscription within a
// session. Identifiers are allocated by the protocol layer and are
// opaque here; the bridge only requires that the sink fires callbacks
// for one identifier in production order.
type CallbackID int64

// Sink is the session-wide registry of raw stream callbacks. The
// transport feeds it inbound notifications; attaching handlers for an
// identifier connects them to the underlying stream for that
// identifier. Handlers are invoked synchronously on whatever goroutine
// the sink uses, which may be a transport I/O goroutine.
type Sink interface {
	// Attach registers the three notification handlers for id and
	// returns a func that detaches them again. Attach may fail
	// synchronously, for example if the identifier is unknown or
	// already has handlers attached.
	Attach(id CallbackID, onNext func(value any), onError func(err error), onCompleted func()) (func(), error)
}

// Scheduler executes deferred units of work on pool goroutines,
// independent of the submitting goroutine.
type Scheduler interface {
	// Submit queues work for execution on a pool goroutine. It never
	// blocks the caller. Units submitted for the same id run in
	// submission order; no order is defined across different ids.
	// Submit returns an error if the scheduler can no longer accept
	// work, which callers must treat as a session-level failure.
	Submit(id CallbackID, work func()) error
}

// SessionFaults is the session-wide fault authority. Any failure in
// the notification path is reported here rather than handled locally;
// the session has no finer-grained unit of recovery than itself.
type SessionFaults interface {
	// CancelAll cancels all communication for the session, recording
	// err as the cause. It is idempotent and safe to call from any
	// goroutine; the first call wins.
	CancelAll(err error)
}
