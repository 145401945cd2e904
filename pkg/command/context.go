package command

// RunContext carries per-request execution context supplied by the hosting
// shell: the active search query, which surface issued the request, an
// environment map that dynamic display properties (including CEL-backed
// ones) evaluate against, the currently held modifier keys, and any pending
// form values.
//
// A RunContext is read-only from the engine's point of view; hosts build a
// fresh one per request.
type RunContext struct {
	Query           string
	Sender          string
	Environment     map[string]any
	ActiveModifiers []string
	FormValues      map[string]string
}

// HasModifier reports whether the given modifier key is currently held.
func (rc *RunContext) HasModifier(mod string) bool {
	if rc == nil {
		return false
	}
	for _, m := range rc.ActiveModifiers {
		if m == mod {
			return true
		}
	}
	return false
}
