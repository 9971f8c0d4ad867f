// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package observable bridges remote stream notifications onto pool
// goroutines for duplex query sessions.
//
// A duplex session delivers inbound stream notifications on goroutines
// owned by the transport. Handler code downstream of a notification may
// make a synchronous call back over the same session; if that call runs
// on the transport goroutine it can starve the session's ability to
// receive further data, stalling the whole connection. The bridge in
// this package accepts the raw next/error/completed callbacks for one
// callback identifier and redispatches each onto a shared scheduler, so
// the destination observer never runs on the goroutine that produced
// the notification.
//
// A failure anywhere on this path - attaching to the sink, narrowing a
// payload to the observer's element type, or the observer itself - is
// treated as fatal to the entire session, not just to the offending
// subscription. The shared multiplexing channel cannot be trusted once
// a notification has been lost, so every captured failure is handed to
// the session fault authority, which cancels all communication.
//
// The dispatch and fault subpackages provide the scheduler and fault
// controller used by a session; the bridge itself depends only on the
// narrow interfaces declared here.
package observable
