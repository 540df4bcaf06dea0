package chat

// Typing tracks the local "typing" signal. Every keystroke mints a new timer
// token; only the expiry of the latest token ends the signal, which is how a
// keystroke resets the idle timer.
type Typing struct {
	active bool
	token  uint64
}

// Keystroke records a keystroke. start is true when a typing-start event must
// be sent; token identifies the idle timer to arm.
func (t *Typing) Keystroke() (start bool, token uint64) {
	t.token++
	if !t.active {
		t.active = true
		start = true
	}
	return start, t.token
}

// Expire reports whether the timer for token ended the signal, in which case
// a typing-stop event must be sent.
func (t *Typing) Expire(token uint64) bool {
	if !t.active || token != t.token {
		return false
	}
	t.active = false
	return true
}

// Reset ends the signal without waiting for the timer and invalidates any
// armed timer. It reports whether the signal was active.
func (t *Typing) Reset() bool {
	was := t.active
	t.active = false
	t.token++
	return was
}

func (t *Typing) Active() bool {
	return t.active
}
