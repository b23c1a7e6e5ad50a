package emulator

import "github.com/magworks/crowdpad/internal/game"

// keysyms maps each abstract button onto the X keysym the emulator is
// configured to read.
var keysyms = map[game.Button]string{
	game.ButtonUp:     "Up",
	game.ButtonDown:   "Down",
	game.ButtonLeft:   "Left",
	game.ButtonRight:  "Right",
	game.ButtonSelect: "BackSpace",
	game.ButtonStart:  "Return",
	game.ButtonA:      "x",
	game.ButtonB:      "z",
}

// Emulator checkpoint key sequences (mGBA defaults).
const (
	saveStateKeys    = "Shift+F1"
	rotateBackupKeys = "Shift+F2"
)
