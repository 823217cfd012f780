package sim

import "time"

// CommandType enumerates the intents the engine accepts.
type CommandType string

const (
	CommandJoin  CommandType = "Join"
	CommandLeave CommandType = "Leave"
	CommandMove  CommandType = "Move"
	CommandFire  CommandType = "Fire"
)

// MoveCommand carries a movement intent. The vector is normalized before
// integration, so a client cannot gain speed by inflating it.
type MoveCommand struct {
	DX     float64         `json:"dx"`
	DY     float64         `json:"dy"`
	Facing FacingDirection `json:"facing,omitempty"`
}

// FireCommand carries a projectile launch direction. A zero vector fires
// along the actor's current facing.
type FireCommand struct {
	DirX float64 `json:"dirX"`
	DirY float64 `json:"dirY"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64       `json:"originTick"`
	Sequence   uint64       `json:"sequence,omitempty"`
	ActorID    string       `json:"actorId"`
	Type       CommandType  `json:"type"`
	IssuedAt   time.Time    `json:"issuedAt"`
	Move       *MoveCommand `json:"move,omitempty"`
	Fire       *FireCommand `json:"fire,omitempty"`
}

// Clone returns a deep copy so staged commands cannot alias caller memory.
func (c Command) Clone() Command {
	cloned := c
	if c.Move != nil {
		move := *c.Move
		cloned.Move = &move
	}
	if c.Fire != nil {
		fire := *c.Fire
		cloned.Fire = &fire
	}
	return cloned
}
