package game

// Button is one of the fixed set of abstract inputs a badge can hold.
type Button string

const (
	ButtonUp     Button = "up"
	ButtonDown   Button = "down"
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonSelect Button = "select"
	ButtonStart  Button = "start"
	ButtonA      Button = "a"
	ButtonB      Button = "b"

	// ButtonNone means no button is held.
	ButtonNone Button = ""
)

// QuitButton is the button whose sustained hold removes a player.
const QuitButton = ButtonStart

// Buttons is the declaration order used when scanning vote totals. The
// first button reaching the max count wins a provisional tie, so this
// order must stay fixed.
var Buttons = [...]Button{
	ButtonUp,
	ButtonDown,
	ButtonLeft,
	ButtonRight,
	ButtonSelect,
	ButtonStart,
	ButtonA,
	ButtonB,
}

// ParseButton maps a wire-level button name onto the fixed set.
func ParseButton(s string) (Button, bool) {
	for _, b := range Buttons {
		if string(b) == s {
			return b, true
		}
	}
	return ButtonNone, false
}

// Color is a 24-bit RGB badge light value. The "primary" colors are
// deliberately dim; badge LEDs at full brightness drain batteries fast.
type Color uint32

const (
	ColorRed   Color = 0x020000
	ColorGreen Color = 0x000200
	ColorWhite Color = 0x010101
	ColorOff   Color = 0x000000
)

// LightState is the four ordered badge lights
// [bottom-left, bottom-right, top-right, top-left].
type LightState [4]Color

// UniformLights sets all four lights to the same color.
func UniformLights(c Color) LightState {
	return LightState{c, c, c, c}
}

// Palette holds the feedback colors shown while a player is in the game.
// Join (white) and leave (off) colors are fixed.
type Palette struct {
	Matched   LightState
	Unmatched LightState
}

func DefaultPalette() Palette {
	return Palette{
		Matched:   lightsMatched,
		Unmatched: lightsUnmatched,
	}
}

var (
	lightsMatched   = UniformLights(ColorGreen)
	lightsUnmatched = UniformLights(ColorRed)
	lightsInitial   = UniformLights(ColorWhite)
	lightsCleared   = UniformLights(ColorOff)
)
