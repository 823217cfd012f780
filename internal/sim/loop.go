package sim

import (
	"sync"
	"time"

	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/logging"
)

const (
	// DefaultTickRate is the fixed simulation rate in ticks per second.
	DefaultTickRate = 15
	// DefaultCatchupMaxTicks caps how many tick budgets a late step may
	// integrate at once.
	DefaultCatchupMaxTicks = 4
	// DefaultCommandCapacity sizes the staged command ring.
	DefaultCommandCapacity = 256
)

const (
	// CommandRejectQueueLimit indicates a command was dropped by per-actor
	// throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the shared command ring is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectUnknownActor indicates the command named an actor the
	// intake layer does not track.
	CommandRejectUnknownActor = "unknown_actor"
	// CommandRejectInvalidAction indicates a malformed or unsupported
	// command payload.
	CommandRejectInvalidAction = "invalid_action"
)

const commandsDroppedMetricKey = "sim_commands_dropped_total"

// LoopConfig tunes command ingestion and the fixed-timestep runner. Zero
// values for TickRate, CatchupMaxTicks, and CommandCapacity fall back to
// the package defaults. PerActorLimit and WarningStep stay disabled at
// zero.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

func (cfg LoopConfig) normalized() LoopConfig {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = DefaultCatchupMaxTicks
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = DefaultCommandCapacity
	}
	return cfg
}

// LoopTickContext describes the tick about to execute.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult summarizes one executed tick for the AfterStep hook.
// RawDelta preserves the wall-clock gap before clamping so observers can
// tell how much backlog a late tick discarded.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	RawDelta     float64
	Snapshot     Snapshot
	Hash         string
	Commands     []Command
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks lets the caller observe and steer loop execution. Every hook is
// optional and runs on the loop goroutine.
type LoopHooks struct {
	Prepare        func(LoopTickContext)
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// Loop serializes command ingestion and engine stepping. Producers may
// Enqueue concurrently; Advance and Run must not run concurrently with each
// other.
type Loop struct {
	engine *Engine
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig

	logger  telemetry.Logger
	metrics metricsSink
	clock   logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the engine with a ring-buffer command queue and a
// fixed-timestep runner. A nil engine yields a nil loop.
func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	cfg = cfg.normalized()
	deps := engine.Deps()
	return &Loop{
		engine:        engine,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		clock:         deps.Clock,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Engine exposes the wrapped engine. Callers must not touch it while Run is
// live; use Enqueue and the AfterStep hook instead.
func (l *Loop) Engine() *Engine {
	if l == nil {
		return nil
	}
	return l.engine
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// DrainCommands clears the staged command queue without advancing the
// engine.
func (l *Loop) DrainCommands() []Command {
	if l == nil {
		return nil
	}
	return l.drainCommands()
}

// Enqueue stages a command, enforcing per-actor throttling and ring
// capacity. The reason string is empty on success.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd.Clone()) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			if length := l.buffer.Len(); length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes one simulation step using the staged commands. The
// runner calls this once per tick; tests may call it directly to step
// manually.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	l.engine.Apply(commands)
	l.engine.Step(ctx.Delta)
	return LoopStepResult{
		Tick:     l.engine.Tick(),
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Snapshot: l.engine.Snapshot(),
		Hash:     l.engine.StateHash(),
		Commands: commands,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes. Late
// ticks integrate a larger delta, clamped to CatchupMaxTicks budgets so a
// stall cannot tunnel actors through geometry.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	interval := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	clock := l.clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	budgetSeconds := 1.0 / float64(tickRate)
	maxDelta := budgetSeconds * float64(l.config.CatchupMaxTicks)
	last := clock.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			rawDelta := now.Sub(last).Seconds()
			delta := rawDelta
			clamped := false
			if delta <= 0 {
				delta = budgetSeconds
			} else if delta > maxDelta {
				delta = maxDelta
				clamped = true
			}
			last = now

			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: l.engine.Tick() + 1, Now: now, Delta: delta})
			result.Duration = clock.Now().Sub(start)
			result.Budget = interval
			result.RawDelta = rawDelta
			result.ClampedDelta = clamped
			result.MaxDelta = maxDelta

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.metrics != nil {
		l.metrics.Add(commandsDroppedMetricKey, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
		)
	}
}

// Ensure the telemetry interface stays assignable to the local metric sink.
var _ metricsSink = (telemetry.Metrics)(nil)
