package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rift-and-ruin/server/internal/net/intake"
	"rift-and-ruin/server/internal/net/proto"
	"rift-and-ruin/server/internal/sim"
	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/internal/world"
	"rift-and-ruin/server/layout"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/network"
	"rift-and-ruin/server/logging/simulation"
)

// hashRingSize bounds how many recent tick hashes are retained for client
// desync reports.
const hashRingSize = 64

// HubConfig wires a hub to its arena, simulation tuning, and ambient
// services. Nil or zero fields fall back to package defaults. When Layout
// is set it overrides the procedural generation flags in World.
type HubConfig struct {
	World  world.Config
	Layout *layout.Document
	Sim    sim.Config
	Loop   sim.LoopConfig

	Logger           telemetry.Logger
	Metrics          *telemetry.Counters
	Publisher        logging.Publisher
	Clock            logging.Clock
	HeartbeatTimeout time.Duration
}

// playerSession tracks hub-side bookkeeping for one joined actor. The
// authoritative actor state lives in the engine; the hub only owns
// connectivity and liveness.
type playerSession struct {
	id            string
	token         string
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type tickHash struct {
	tick uint64
	hash string
}

// Hub owns the session registry, the websocket fan-out, and the simulation
// loop for one arena.
type Hub struct {
	world  *world.World
	loop   *sim.Loop
	simCfg sim.Config

	logger    telemetry.Logger
	metrics   *telemetry.Counters
	publisher logging.Publisher
	clock     logging.Clock

	heartbeatTimeout time.Duration

	nextID   atomic.Uint64
	lastTick atomic.Uint64

	mu          sync.Mutex
	sessions    map[string]*playerSession
	subscribers map[string]*Subscriber
	lastState   []byte
	hashes      [hashRingSize]tickHash

	// overrunStreak is only touched on the loop goroutine.
	overrunStreak uint64
}

// NewHub builds the world, engine, and loop described by cfg. The loop does
// not advance until RunSimulation is called.
func NewHub(cfg HubConfig) (*Hub, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewCounters()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	heartbeatTimeout := cfg.HeartbeatTimeout
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = disconnectAfter
	}

	worldCfg := cfg.World
	worldDeps := world.Deps{Publisher: publisher}
	if cfg.Layout != nil {
		worldCfg = cfg.Layout.WorldConfig(cfg.World.Seed)
		worldDeps.Authored = cfg.Layout.Resolve()
	}
	w := world.New(worldCfg, worldDeps)

	engine, err := sim.NewEngine(w, cfg.Sim, sim.Deps{
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
		Clock:     clock,
	})
	if err != nil {
		return nil, fmt.Errorf("server: build engine: %w", err)
	}

	hub := &Hub{
		world:            w,
		simCfg:           engine.Config(),
		logger:           logger,
		metrics:          metrics,
		publisher:        publisher,
		clock:            clock,
		heartbeatTimeout: heartbeatTimeout,
		sessions:         make(map[string]*playerSession),
		subscribers:      make(map[string]*Subscriber),
	}
	hub.loop = sim.NewLoop(engine, cfg.Loop, sim.LoopHooks{AfterStep: hub.afterStep})
	return hub, nil
}

// Join registers a new actor, queues its spawn for the next tick, and
// returns the handshake the client needs to open a websocket.
func (h *Hub) Join(remote string) (proto.JoinResponseV1, error) {
	id := fmt.Sprintf("raider-%d", h.nextID.Add(1))
	token := uuid.NewString()
	now := h.clock.Now()

	h.mu.Lock()
	h.sessions[id] = &playerSession{
		id:            id,
		token:         token,
		lastHeartbeat: now,
	}
	h.mu.Unlock()

	ok, reason := h.loop.Enqueue(sim.Command{
		OriginTick: h.lastTick.Load(),
		ActorID:    id,
		Type:       sim.CommandJoin,
		IssuedAt:   now,
	})
	if !ok {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
		return proto.JoinResponseV1{}, fmt.Errorf("server: join rejected: %s", reason)
	}

	network.ClientJoined(context.Background(), h.publisher, h.lastTick.Load(),
		logging.EntityRef{ID: id, Kind: logging.EntityKindAgent},
		network.JoinPayload{Protocol: proto.Version, Remote: remote}, nil)

	return proto.JoinResponseV1{
		ID:              id,
		Session:         token,
		Config:          h.world.Config(),
		Walls:           h.world.Walls(),
		Ruins:           h.world.Ruins(),
		Boundary:        h.world.Boundary(),
		TickRate:        TickRate(),
		HeartbeatMillis: heartbeatInterval.Milliseconds(),
		MoveSpeed:       h.simCfg.MoveSpeed,
		ActorRadius:     world.ActorRadius,
	}, nil
}

// Subscribe authenticates a websocket connection against a session token
// and replaces any previous connection for the actor. The cached last
// broadcast rides along so the session can prime the client immediately.
func (h *Hub) Subscribe(actorID, token string, conn *websocket.Conn) (*Subscriber, []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[actorID]
	if !ok || session.token != token {
		return nil, nil, false
	}

	session.lastHeartbeat = h.clock.Now()

	if existing, ok := h.subscribers[actorID]; ok {
		existing.Close()
	}

	sub := &Subscriber{conn: conn}
	h.subscribers[actorID] = sub
	return sub, h.lastState, true
}

// Disconnect tears down an actor's connection and queues its despawn. The
// reason is forwarded to the event log.
func (h *Hub) Disconnect(actorID, reason string) bool {
	h.mu.Lock()
	sub, subOK := h.subscribers[actorID]
	if subOK {
		delete(h.subscribers, actorID)
	}
	_, sessionOK := h.sessions[actorID]
	if sessionOK {
		delete(h.sessions, actorID)
	}
	h.mu.Unlock()

	if subOK {
		sub.Close()
	}
	if !sessionOK {
		return false
	}

	tick := h.lastTick.Load()
	if ok, dropReason := h.loop.Enqueue(sim.Command{
		OriginTick: tick,
		ActorID:    actorID,
		Type:       sim.CommandLeave,
		IssuedAt:   h.clock.Now(),
	}); !ok {
		h.logger.Printf("failed to queue despawn for %s: %s", actorID, dropReason)
	}

	network.ClientLeft(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: actorID, Kind: logging.EntityKindAgent},
		network.LeavePayload{Reason: reason}, nil)
	return true
}

// HasActor reports whether a session is registered for the ID.
func (h *Hub) HasActor(actorID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[actorID]
	return ok
}

func (h *Hub) commandContext() intake.CommandContext {
	return intake.CommandContext{
		Queue:    h.loop,
		HasActor: h.HasActor,
		Tick:     h.lastTick.Load,
		Now:      h.clock.Now,
	}
}

// UpdateIntent stages a movement command carrying the client's latest input
// vector and optional facing override.
func (h *Hub) UpdateIntent(actorID string, dx, dy float64, facing string) (sim.Command, bool, string) {
	return intake.StageClientCommand(h.commandContext(), actorID, proto.ClientMessage{
		Type:   proto.TypeInput,
		DX:     dx,
		DY:     dy,
		Facing: facing,
	})
}

// HandleFire stages a projectile launch along the given direction.
func (h *Hub) HandleFire(actorID string, dx, dy float64) (sim.Command, bool, string) {
	return intake.StageClientCommand(h.commandContext(), actorID, proto.ClientMessage{
		Type: proto.TypeFire,
		DX:   dx,
		DY:   dy,
	})
}

// UpdateHeartbeat records liveness and derives a round-trip estimate from
// the client's send timestamp. Timestamps more than a few seconds in the
// future are ignored.
func (h *Hub) UpdateHeartbeat(actorID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[actorID]
	if !ok {
		return 0, false
	}

	session.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			session.lastRTT = rtt
		}
	}

	return session.lastRTT, true
}

// ReportHash checks a client's state hash for a recent tick against the
// authoritative record and publishes a desync event on mismatch. The
// second result reports whether the tick was still inside the window.
func (h *Hub) ReportHash(actorID string, tick uint64, hash string) (bool, bool) {
	if tick == 0 || hash == "" {
		return false, false
	}

	var local string
	h.mu.Lock()
	if entry := h.hashes[tick%hashRingSize]; entry.tick == tick {
		local = entry.hash
	}
	h.mu.Unlock()

	if local == "" {
		return false, false
	}
	if local == hash {
		return true, true
	}

	h.metrics.Add("net_desync_reports_total", 1)
	simulation.Desync(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: actorID, Kind: logging.EntityKindAgent},
		simulation.DesyncPayload{LocalHash: local, RemoteHash: hash}, nil)
	return false, true
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.loop.Run(stop)
}

// afterStep runs on the loop goroutine once per executed tick. It refreshes
// the hash window, fans the snapshot out to every subscriber, and evicts
// sessions that went silent.
func (h *Hub) afterStep(result sim.LoopStepResult) {
	h.lastTick.Store(result.Tick)
	now := result.Now

	data, err := proto.EncodeStateSnapshotV1(proto.StateSnapshotV1{
		Tick:        result.Tick,
		ServerTime:  now.UnixMilli(),
		Actors:      result.Snapshot.Actors,
		Projectiles: result.Snapshot.Projectiles,
		Hash:        result.Hash,
	})
	if err != nil {
		h.logger.Printf("failed to marshal state message: %v", err)
		return
	}

	type staleSession struct {
		id      string
		silence time.Duration
	}

	h.mu.Lock()
	h.lastState = data
	h.hashes[result.Tick%hashRingSize] = tickHash{tick: result.Tick, hash: result.Hash}

	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}

	var stale []staleSession
	for id, session := range h.sessions {
		if silence := now.Sub(session.lastHeartbeat); silence > h.heartbeatTimeout {
			stale = append(stale, staleSession{id: id, silence: silence})
		}
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id, "write_failed")
		}
	}

	for _, gone := range stale {
		h.logger.Printf("disconnecting %s due to heartbeat timeout", gone.id)
		network.HeartbeatTimeout(context.Background(), h.publisher, result.Tick,
			logging.EntityRef{ID: gone.id, Kind: logging.EntityKindAgent},
			network.HeartbeatTimeoutPayload{
				SilenceMillis: gone.silence.Milliseconds(),
				LimitMillis:   h.heartbeatTimeout.Milliseconds(),
			}, nil)
		h.Disconnect(gone.id, "heartbeat_timeout")
	}

	h.observeBudget(result)
}

// observeBudget publishes pacing telemetry when a tick overran its budget
// or the runner discarded backlog to catch up.
func (h *Hub) observeBudget(result sim.LoopStepResult) {
	if result.Budget > 0 && result.Duration > result.Budget {
		h.overrunStreak++
		h.metrics.Add("loop_budget_overruns_total", 1)
		simulation.TickBudgetOverrun(context.Background(), h.publisher, result.Tick,
			simulation.TickBudgetOverrunPayload{
				DurationMillis: result.Duration.Milliseconds(),
				BudgetMillis:   result.Budget.Milliseconds(),
				Ratio:          float64(result.Duration) / float64(result.Budget),
				Streak:         h.overrunStreak,
			}, nil)
	} else {
		h.overrunStreak = 0
	}

	if result.ClampedDelta && result.Budget > 0 {
		budgetSeconds := result.Budget.Seconds()
		h.metrics.Add("loop_backlog_trimmed_total", 1)
		simulation.BacklogTrimmed(context.Background(), h.publisher, result.Tick,
			simulation.BacklogTrimmedPayload{
				Pending: int(result.RawDelta/budgetSeconds + 0.5),
				Kept:    int(result.Delta/budgetSeconds + 0.5),
			}, nil)
	}
}

// DiagnosticsActor reports connectivity health for one session.
type DiagnosticsActor struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsActor {
	h.mu.Lock()
	defer h.mu.Unlock()

	actors := make([]DiagnosticsActor, 0, len(h.sessions))
	for _, session := range h.sessions {
		actors = append(actors, DiagnosticsActor{
			ID:            session.id,
			LastHeartbeat: session.lastHeartbeat.UnixMilli(),
			RTTMillis:     session.lastRTT.Milliseconds(),
		})
	}
	return actors
}

// TelemetrySnapshot copies the hub's counter set.
func (h *Hub) TelemetrySnapshot() map[string]uint64 {
	return h.metrics.Snapshot()
}

// LastTick reports the most recently completed tick.
func (h *Hub) LastTick() uint64 {
	return h.lastTick.Load()
}

// LastHash reports the state hash of the most recent tick, or empty before
// the first step.
func (h *Hub) LastHash() string {
	tick := h.lastTick.Load()
	h.mu.Lock()
	defer h.mu.Unlock()
	if entry := h.hashes[tick%hashRingSize]; entry.tick == tick {
		return entry.hash
	}
	return ""
}

// Publisher exposes the hub's event publisher for collaborating handlers.
func (h *Hub) Publisher() logging.Publisher {
	return h.publisher
}
