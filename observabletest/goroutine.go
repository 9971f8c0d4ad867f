// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package observabletest

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// GoroutineID returns the id of the calling goroutine, parsed from the
// runtime stack header. Only for test assertions about which goroutine
// a callback was delivered on; production code has no business knowing
// goroutine ids.
func GoroutineID() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	// The header looks like "goroutine 123 [running]:".
	fields := strings.Fields(string(buf))
	if len(fields) < 2 {
		panic(fmt.Sprintf("unparseable stack header %q", buf))
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		panic(fmt.Sprintf("unparseable goroutine id %q: %v", fields[1], err))
	}
	return id
}
