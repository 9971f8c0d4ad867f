// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observable

// Observer receives the notifications of one remote stream. At most
// one terminal call (OnError or OnCompleted) is made per subscription;
// OnNext may be called any number of times before that, never after.
// Calls are made on pool goroutines, one at a time, in the order the
// stream produced them.
//
// Observer methods have no error returns; a failure in observer code
// is expressed as a panic, which the bridge recovers and reports as a
// session fault.
type Observer[T any] interface {
	// OnNext delivers the next element of the stream.
	OnNext(value T)

	// OnError terminates the stream with err.
	OnError(err error)

	// OnCompleted terminates the stream normally.
	OnCompleted()
}
