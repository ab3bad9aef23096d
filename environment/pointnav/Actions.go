package pointnav

// Discrete navigation actions
const (
	Stop = iota
	Up
	Left
	Right
	Down
)

// NumActions is the number of discrete actions
const NumActions = 5

// moves are the actions that change the agent's cell, in the order the
// follower prefers them
var moves = []int{Up, Left, Right, Down}

// ActionName returns the human readable name of an action
func ActionName(action int) string {
	switch action {
	case Stop:
		return "stop"
	case Up:
		return "up"
	case Left:
		return "left"
	case Right:
		return "right"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}
