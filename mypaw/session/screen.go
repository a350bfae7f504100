package session

// Screen identifies which view the presentation layer should show. The
// engine is the single authority over the current screen.
type Screen string

const (
	ScreenLanding   Screen = "landing"
	ScreenAuth      Screen = "auth"
	ScreenDashboard Screen = "dashboard"
	ScreenUpload    Screen = "upload"
	ScreenIdentify  Screen = "identify"
	ScreenRegister  Screen = "register"
	ScreenChat      Screen = "chat"
	ScreenDiet      Screen = "diet"
	ScreenPawMood   Screen = "pawmood"
)

var knownScreens = map[Screen]bool{
	ScreenLanding:   true,
	ScreenAuth:      true,
	ScreenDashboard: true,
	ScreenUpload:    true,
	ScreenIdentify:  true,
	ScreenRegister:  true,
	ScreenChat:      true,
	ScreenDiet:      true,
	ScreenPawMood:   true,
}

// ParseScreen validates a stored screen id. Unknown ids come back false so
// a corrupted restoration slot falls through to the default logic.
func ParseScreen(s string) (Screen, bool) {
	sc := Screen(s)
	return sc, knownScreens[sc]
}

// Mirrored reports whether transitions into this screen are recorded in the
// durable restoration mirror.
func (s Screen) Mirrored() bool {
	return s != ScreenLanding && s != ScreenAuth
}

// preAuth screens may be overwritten by restoration; an active flow on any
// other screen is never clobbered by a background auth refresh.
func (s Screen) preAuth() bool {
	return s == ScreenLanding || s == ScreenAuth
}
