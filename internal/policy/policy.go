// Package policy decides which forum actions need a signed-in account.
package policy

type Mode string
type Action string

const (
	// ModeOpen lets anyone write; anonymous authors protect their content
	// with a password.
	ModeOpen Mode = "open"
	// ModeMembersOnly requires a session for every write.
	ModeMembersOnly Mode = "members-only"
)

// Actions that create content. Reading is never gated and changing existing
// content goes through the ownership check instead.
const (
	ActionPost    Action = "post"
	ActionComment Action = "comment"
)

// Can reports whether a caller may create content with action under mode.
func Can(mode Mode, signedIn bool, action Action) bool {
	if action != ActionPost && action != ActionComment {
		return false
	}
	switch mode {
	case ModeOpen:
		return true
	case ModeMembersOnly:
		return signedIn
	default:
		return false
	}
}

func Normalize(mode string) Mode {
	switch Mode(mode) {
	case "":
		return ModeOpen
	case ModeOpen, ModeMembersOnly:
		return Mode(mode)
	default:
		return ModeMembersOnly
	}
}
