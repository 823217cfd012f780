package server

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"rift-and-ruin/server/internal/sim"
	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/logging"
	"rift-and-ruin/server/logging/network"
	"rift-and-ruin/server/logging/simulation"
)

// eventRecorder captures published events synchronously for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []logging.Event
}

func (r *eventRecorder) Publish(_ context.Context, event logging.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) byType(eventType logging.EventType) []logging.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []logging.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// fixedClock serves a controllable time to the hub.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHub(t *testing.T, cfg HubConfig) *Hub {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	hub, err := NewHub(cfg)
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	return hub
}

func stepHub(h *Hub) sim.LoopStepResult {
	tick := h.loop.Engine().Tick() + 1
	result := h.loop.Advance(sim.LoopTickContext{
		Tick:  tick,
		Now:   h.clock.Now(),
		Delta: 1.0 / float64(TickRate()),
	})
	result.Budget = time.Second / time.Duration(TickRate())
	h.afterStep(result)
	return result
}

func TestJoinRegistersSessionAndSpawnsActor(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if resp.ID != "raider-1" {
		t.Fatalf("expected first id raider-1, got %q", resp.ID)
	}
	if resp.Session == "" {
		t.Fatalf("expected a session token")
	}
	if resp.TickRate != TickRate() {
		t.Fatalf("expected tick rate %d, got %d", TickRate(), resp.TickRate)
	}
	if resp.HeartbeatMillis != heartbeatInterval.Milliseconds() {
		t.Fatalf("expected heartbeat %d, got %d", heartbeatInterval.Milliseconds(), resp.HeartbeatMillis)
	}
	if resp.MoveSpeed != sim.DefaultMoveSpeed {
		t.Fatalf("expected default move speed, got %v", resp.MoveSpeed)
	}
	if !hub.HasActor(resp.ID) {
		t.Fatalf("expected session registry to track %s", resp.ID)
	}

	stepHub(hub)
	if _, ok := hub.loop.Engine().Actor(resp.ID); !ok {
		t.Fatalf("expected actor to spawn on the next tick")
	}
}

func TestJoinAssignsDistinctSessions(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	first, err := hub.Join("")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := hub.Join("")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %q", first.ID)
	}
	if first.Session == second.Session {
		t.Fatalf("expected distinct session tokens")
	}
}

func TestJoinPublishesClientJoined(t *testing.T) {
	rec := &eventRecorder{}
	hub := newTestHub(t, HubConfig{Publisher: rec})

	resp, err := hub.Join("10.0.0.5:1234")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	events := rec.byType(network.EventClientJoined)
	if len(events) != 1 {
		t.Fatalf("expected one join event, got %d", len(events))
	}
	if events[0].Actor.ID != resp.ID {
		t.Fatalf("expected actor %s, got %s", resp.ID, events[0].Actor.ID)
	}
	payload, ok := events[0].Payload.(network.JoinPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if payload.Remote != "10.0.0.5:1234" {
		t.Fatalf("expected remote address in payload, got %q", payload.Remote)
	}
}

func TestSubscribeRejectsBadCredentials(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if _, _, ok := hub.Subscribe("ghost", resp.Session, nil); ok {
		t.Fatalf("expected unknown id to be rejected")
	}
	if _, _, ok := hub.Subscribe(resp.ID, "forged-token", nil); ok {
		t.Fatalf("expected forged token to be rejected")
	}
}

func TestUpdateIntentStagesMoveCommand(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	cmd, ok, reason := hub.UpdateIntent(resp.ID, 1, 0, "up")
	if !ok {
		t.Fatalf("expected intent to stage, got reason %q", reason)
	}
	if cmd.ActorID != resp.ID {
		t.Fatalf("expected command stamped for %s, got %s", resp.ID, cmd.ActorID)
	}
	if hub.loop.Pending() != 2 {
		t.Fatalf("expected join and move staged, got %d", hub.loop.Pending())
	}

	stepHub(hub)
	actor, ok := hub.loop.Engine().Actor(resp.ID)
	if !ok {
		t.Fatalf("expected actor after step")
	}
	if actor.Facing != sim.FacingUp {
		t.Fatalf("expected facing override to apply, got %q", actor.Facing)
	}
}

func TestUpdateIntentRejectsUnknownActor(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	_, ok, reason := hub.UpdateIntent("ghost", 1, 0, "")
	if ok {
		t.Fatalf("expected unknown actor to be rejected")
	}
	if reason != sim.CommandRejectUnknownActor {
		t.Fatalf("expected reason %q, got %q", sim.CommandRejectUnknownActor, reason)
	}
}

func TestHandleFireStagesCommand(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if _, ok, reason := hub.HandleFire(resp.ID, 0, -1); !ok {
		t.Fatalf("expected fire to stage, got reason %q", reason)
	}

	stepHub(hub)
	snapshot := hub.loop.Engine().Snapshot()
	if len(snapshot.Projectiles) != 1 {
		t.Fatalf("expected one projectile, got %d", len(snapshot.Projectiles))
	}
	if snapshot.Projectiles[0].OwnerID != resp.ID {
		t.Fatalf("expected projectile owned by %s, got %s", resp.ID, snapshot.Projectiles[0].OwnerID)
	}
}

func TestUpdateHeartbeatComputesRTT(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	receivedAt := time.UnixMilli(1_000_000)
	rtt, ok := hub.UpdateHeartbeat(resp.ID, receivedAt, receivedAt.Add(-40*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if rtt != 40*time.Millisecond {
		t.Fatalf("expected rtt 40ms, got %v", rtt)
	}

	// A client clock far in the future must not poison the estimate.
	rtt, ok = hub.UpdateHeartbeat(resp.ID, receivedAt, receivedAt.Add(time.Minute).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat to be recorded")
	}
	if rtt != 40*time.Millisecond {
		t.Fatalf("expected previous rtt to survive, got %v", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("ghost", receivedAt, 0); ok {
		t.Fatalf("expected unknown actor heartbeat to be ignored")
	}
}

func TestReportHashFlagsDesync(t *testing.T) {
	rec := &eventRecorder{}
	hub := newTestHub(t, HubConfig{Publisher: rec})

	if _, err := hub.Join(""); err != nil {
		t.Fatalf("Join: %v", err)
	}
	result := stepHub(hub)
	if result.Hash == "" {
		t.Fatalf("expected a state hash after stepping")
	}

	match, known := hub.ReportHash("raider-1", result.Tick, result.Hash)
	if !match || !known {
		t.Fatalf("expected matching hash to verify, got match=%v known=%v", match, known)
	}
	if events := rec.byType(simulation.EventDesync); len(events) != 0 {
		t.Fatalf("expected no desync events for a match, got %d", len(events))
	}

	match, known = hub.ReportHash("raider-1", result.Tick, "deadbeef")
	if match || !known {
		t.Fatalf("expected mismatch inside window, got match=%v known=%v", match, known)
	}
	events := rec.byType(simulation.EventDesync)
	if len(events) != 1 {
		t.Fatalf("expected one desync event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(simulation.DesyncPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if payload.LocalHash != result.Hash || payload.RemoteHash != "deadbeef" {
		t.Fatalf("unexpected desync payload: %+v", payload)
	}

	if _, known := hub.ReportHash("raider-1", result.Tick+500, "deadbeef"); known {
		t.Fatalf("expected out-of-window tick to be unknown")
	}
}

func TestAfterStepEvictsSilentSessions(t *testing.T) {
	rec := &eventRecorder{}
	clock := &fixedClock{now: time.UnixMilli(5_000_000)}
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})
	hub := newTestHub(t, HubConfig{Publisher: rec, Clock: clock, Logger: logger})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	clock.advance(disconnectAfter + time.Second)
	stepHub(hub)

	if hub.HasActor(resp.ID) {
		t.Fatalf("expected silent session to be evicted")
	}
	if events := rec.byType(network.EventHeartbeatTimeout); len(events) != 1 {
		t.Fatalf("expected one heartbeat timeout event, got %d", len(events))
	}
	if events := rec.byType(network.EventClientLeft); len(events) != 1 {
		t.Fatalf("expected one client left event, got %d", len(events))
	}
	found := false
	for _, line := range logged {
		if strings.Contains(line, "heartbeat timeout") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected heartbeat timeout log line, got %v", logged)
	}
}

func TestDisconnectQueuesDespawn(t *testing.T) {
	hub := newTestHub(t, HubConfig{})

	resp, err := hub.Join("")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	stepHub(hub)

	if !hub.Disconnect(resp.ID, "test") {
		t.Fatalf("expected disconnect to succeed")
	}
	if hub.HasActor(resp.ID) {
		t.Fatalf("expected session to be removed")
	}
	if hub.Disconnect(resp.ID, "test") {
		t.Fatalf("expected second disconnect to report unknown actor")
	}

	stepHub(hub)
	if _, ok := hub.loop.Engine().Actor(resp.ID); ok {
		t.Fatalf("expected actor to despawn after the next tick")
	}
}

func TestObserveBudgetTracksOverrunStreak(t *testing.T) {
	rec := &eventRecorder{}
	hub := newTestHub(t, HubConfig{Publisher: rec})

	budget := time.Second / time.Duration(TickRate())
	hub.observeBudget(sim.LoopStepResult{Tick: 1, Duration: budget * 2, Budget: budget})
	hub.observeBudget(sim.LoopStepResult{Tick: 2, Duration: budget * 2, Budget: budget})

	events := rec.byType(simulation.EventTickBudgetOverrun)
	if len(events) != 2 {
		t.Fatalf("expected two overrun events, got %d", len(events))
	}
	second, ok := events[1].Payload.(simulation.TickBudgetOverrunPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[1].Payload)
	}
	if second.Streak != 2 {
		t.Fatalf("expected streak 2, got %d", second.Streak)
	}

	hub.observeBudget(sim.LoopStepResult{Tick: 3, Duration: budget / 2, Budget: budget})
	hub.observeBudget(sim.LoopStepResult{Tick: 4, Duration: budget * 2, Budget: budget})
	events = rec.byType(simulation.EventTickBudgetOverrun)
	last, ok := events[len(events)-1].Payload.(simulation.TickBudgetOverrunPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[len(events)-1].Payload)
	}
	if last.Streak != 1 {
		t.Fatalf("expected streak to reset, got %d", last.Streak)
	}
}

func TestObserveBudgetReportsTrimmedBacklog(t *testing.T) {
	rec := &eventRecorder{}
	hub := newTestHub(t, HubConfig{Publisher: rec})

	budget := time.Second / time.Duration(TickRate())
	hub.observeBudget(sim.LoopStepResult{
		Tick:         7,
		Budget:       budget,
		RawDelta:     1.0,
		Delta:        budget.Seconds() * 3,
		ClampedDelta: true,
	})

	events := rec.byType(simulation.EventBacklogTrimmed)
	if len(events) != 1 {
		t.Fatalf("expected one backlog event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(simulation.BacklogTrimmedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[0].Payload)
	}
	if payload.Pending != 15 || payload.Kept != 3 {
		t.Fatalf("expected 15 pending and 3 kept ticks, got %+v", payload)
	}
}
