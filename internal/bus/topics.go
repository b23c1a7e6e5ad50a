package bus

// Topic and procedure names understood by the badge router.
const (
	RegisterProcedure    = "game.register"
	RegisterRequestTopic = "game.request_register"
	KickTopic            = "game.kick"
)

func PlayerJoinTopic(gameID string) string {
	return "game." + gameID + ".player.join"
}

func PlayerLeaveTopic(gameID string) string {
	return "game." + gameID + ".player.leave"
}

func ButtonPressTopic(badgeID string) string {
	return "badge." + badgeID + ".button.press"
}

func ButtonReleaseTopic(badgeID string) string {
	return "badge." + badgeID + ".button.release"
}

// LightsTopic carries four ordered static colors for a badge's lights
// [bottom-left, bottom-right, top-right, top-left].
func LightsTopic(badgeID string) string {
	return "badge." + badgeID + ".lights_static"
}
