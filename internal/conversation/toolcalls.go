package conversation

// toolCall buffers the streamed state of one function invocation between the
// first event naming its call id and the delivery of its result.
type toolCall struct {
	callID    string
	itemID    string
	name      string
	arguments string
	executing bool
}

// callTracker owns the active tool-call set. It is only touched from the
// event loop goroutine, so it carries no lock.
type callTracker struct {
	calls map[string]*toolCall
	names map[string]string   // call id -> function name, from conversation.item.created
	done  map[string]struct{} // call ids whose result has already been delivered
}

func newCallTracker() *callTracker {
	return &callTracker{
		calls: make(map[string]*toolCall),
		names: make(map[string]string),
		done:  make(map[string]struct{}),
	}
}

// recordName remembers the function name announced for a call id so it can
// be resolved when the arguments complete.
func (t *callTracker) recordName(callID, name string) {
	if callID == "" || name == "" {
		return
	}
	t.names[callID] = name
	if call, ok := t.calls[callID]; ok && call.name == "" {
		call.name = name
	}
}

// onDelta appends one argument fragment, creating the call state lazily.
func (t *callTracker) onDelta(callID, itemID, delta string) {
	call := t.get(callID)
	call.arguments += delta
	if itemID != "" {
		call.itemID = itemID
	}
}

// onComplete records the authoritative argument payload and marks the call
// as executing. It returns nil when the call already ran or its result was
// already delivered: a duplicate completion signal must not trigger a second
// execution.
func (t *callTracker) onComplete(callID, itemID, arguments string) *toolCall {
	if _, finished := t.done[callID]; finished {
		return nil
	}
	call := t.get(callID)
	if call.executing {
		return nil
	}
	call.executing = true
	if itemID != "" {
		call.itemID = itemID
	}
	if arguments != "" {
		// The complete payload supersedes whatever the deltas accumulated.
		call.arguments = arguments
	}
	if call.name == "" {
		call.name = t.names[callID]
	}
	return call
}

// active reports whether the call is still tracked; results arriving for a
// cleared call are dropped.
func (t *callTracker) active(callID string) bool {
	_, ok := t.calls[callID]
	return ok
}

// clear destroys the call state once its result has been delivered. The id
// stays tombstoned until the next connection so late or repeated completion
// signals stay no-ops.
func (t *callTracker) clear(callID string) {
	delete(t.calls, callID)
	delete(t.names, callID)
	t.done[callID] = struct{}{}
}

func (t *callTracker) reset() {
	t.calls = make(map[string]*toolCall)
	t.names = make(map[string]string)
	t.done = make(map[string]struct{})
}

func (t *callTracker) get(callID string) *toolCall {
	call, ok := t.calls[callID]
	if !ok {
		call = &toolCall{callID: callID}
		t.calls[callID] = call
	}
	return call
}
