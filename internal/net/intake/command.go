package intake

import (
	"time"

	"rift-and-ruin/server/internal/net/proto"
	"rift-and-ruin/server/internal/sim"
)

// CommandQueue accepts staged commands for the next tick.
type CommandQueue interface {
	Enqueue(cmd sim.Command) (bool, string)
}

// CommandContext supplies the hub state needed to stage a client command.
type CommandContext struct {
	Queue    CommandQueue
	HasActor func(string) bool
	Tick     func() uint64
	Now      func() time.Time
}

// StageClientCommand validates a decoded client message, stamps its origin
// metadata, and enqueues it. The staged command is returned on success; on
// failure the reject reason identifies what went wrong.
func StageClientCommand(ctx CommandContext, actorID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, sim.CommandRejectInvalidAction
	}

	switch command.Type {
	case sim.CommandMove:
		if command.Move == nil {
			return zero, false, sim.CommandRejectInvalidAction
		}
	case sim.CommandFire:
		if command.Fire == nil {
			return zero, false, sim.CommandRejectInvalidAction
		}
	default:
		return zero, false, sim.CommandRejectInvalidAction
	}

	if ctx.HasActor != nil && !ctx.HasActor(actorID) {
		return zero, false, sim.CommandRejectUnknownActor
	}

	command.ActorID = actorID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Queue == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Queue.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
