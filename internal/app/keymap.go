package app

import "github.com/gregiteen/ai-devices/internal/settings"

// Key binding constants used in handleKey.
const (
	KeyQuit            = "esc"
	KeyCtrlC           = "ctrl+c"
	KeySubmit          = "enter"
	KeyToggleTTS       = "ctrl+t"
	KeyToggleInternet  = "ctrl+n"
	KeyTogglePhotos    = "ctrl+p"
	KeyToggleLudicrous = "ctrl+l"
	KeyToggleRabbit    = "ctrl+r"
)

// toggleKeys maps settings keys to toggles, in panel order.
var toggleKeys = []struct {
	key   string
	name  settings.Name
	label string
}{
	{KeyToggleLudicrous, settings.Ludicrous, "Ludicrous Mode"},
	{KeyToggleTTS, settings.TTS, "Text-to-Speech"},
	{KeyToggleInternet, settings.Internet, "Use Internet Results"},
	{KeyTogglePhotos, settings.Photos, "Use Photos"},
	{KeyToggleRabbit, settings.Rabbit, "Rabbit Mode"},
}
