package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/relayhub/internal/infrastructure/mqtt"
	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher hands relay commands to the bus without waiting for delivery.
type Publisher interface {
	PublishAsync(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Broadcaster fans an event out to every connected session.
// Broadcast must not block.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Session is one connected live client. Send must not block.
type Session interface {
	Send(event string, payload any)
}

// Recorder stores relay state changes and controller heartbeat
// transitions as telemetry. Writes must not block.
type Recorder interface {
	WriteRelayState(relayID int, state string, source string)
	WriteControllerStatus(status string)
}

// Config holds engine settings.
type Config struct {
	// Relays is the number of relays; 0 means relay.DefaultCount.
	Relays int
	// Location is the zone schedule times are evaluated in; nil means Local.
	Location *time.Location
	// QoS is used for relay command publishes and subscriptions.
	QoS byte
}

// Engine coordinates relay state between the bus, live sessions and the
// schedule timers.
//
// The registry, schedule store and scheduler form one consistency domain
// guarded by a single mutex. Every entry point (bus message, session
// command, timer firing, snapshot read) takes it for its whole
// read-modify-write sequence. Publishing and broadcasting never block, so
// the lock is never held across I/O.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	relays *relay.Registry
	store  *schedule.Store
	sched  *schedule.Scheduler

	bus      Publisher
	hub      Broadcaster
	recorder Recorder
	logger   Logger
	qos      byte
	topics   mqtt.Topics

	busStatus        string
	controllerStatus string
}

// NewEngine creates an engine with every relay OFF and manual and no rules.
//
// Parameters:
//   - cfg: relay count, schedule location and bus QoS
//   - bus: publisher for relay commands (may be nil; publishes are skipped)
//   - hub: session broadcaster (may be nil)
//   - logger: Logger instance (may be nil)
func NewEngine(cfg Config, bus Publisher, hub Broadcaster, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	e := &Engine{
		relays:           relay.NewRegistry(cfg.Relays),
		store:            schedule.NewStore(),
		bus:              bus,
		hub:              hub,
		logger:           logger,
		qos:              cfg.QoS,
		busStatus:        BusDisconnected,
		controllerStatus: ControllerUnknown,
	}
	e.sched = schedule.NewScheduler(cfg.Location, e.fire)
	e.sched.SetLogger(logger)
	return e
}

// SetRecorder attaches a telemetry recorder. Call before Start.
func (e *Engine) SetRecorder(r Recorder) {
	e.mu.Lock()
	e.recorder = r
	e.mu.Unlock()
}

// Start arms the (initially empty) rule set and starts the timer loop.
func (e *Engine) Start() {
	e.mu.Lock()
	e.rebuild()
	e.mu.Unlock()
	e.sched.Start()
	e.logger.Info("automation engine started",
		"relays", e.relays.Count(),
		"timezone", e.sched.Location().String(),
	)
}

// Stop halts the timer loop. The returned context is done once any running
// firing has finished.
func (e *Engine) Stop() context.Context {
	return e.sched.Stop()
}

// RelayCount returns the number of relays.
func (e *Engine) RelayCount() int {
	return e.relays.Count()
}

// Apply sets a relay's state and propagates it to the bus and all sessions.
//
// It is the only path that changes published relay state. Both the relay id
// and the state are validated before anything changes; source is recorded
// in logs and telemetry only.
func (e *Engine) Apply(relayID int, state relay.State, source Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(relayID, state, source)
}

// apply is Apply with e.mu held.
func (e *Engine) apply(relayID int, state relay.State, source Source) error {
	if err := e.relays.SetState(relayID, state); err != nil {
		return err
	}

	topic := e.topics.RelayCommand(relayID)
	if e.bus != nil {
		if err := e.bus.PublishAsync(topic, []byte(state), e.qos, true); err != nil {
			// The registry stays authoritative; the retained publish of the
			// next change resyncs the controller.
			e.logger.Warn("relay publish failed", "relay", relayID, "topic", topic, "error", err)
		}
	}

	e.broadcast(EventRelayStatus, RelayStatus{Relay: relayID, Status: state})
	e.record(relayID, state, source)

	e.logger.Info("relay set", "relay", relayID, "state", string(state), "source", string(source))
	return nil
}

// fire handles a schedule timer. It runs on the cron goroutine.
func (e *Engine) fire(f schedule.Firing) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f.Live != nil && !f.Live() {
		e.logger.Debug("stale schedule firing discarded", "relay", f.Relay, "key", f.Key)
		return
	}
	if !e.relays.IsManual(f.Relay) {
		e.logger.Info("schedule ignored (auto mode)", "relay", f.Relay, "key", f.Key)
		return
	}

	e.logger.Info("schedule fired", "relay", f.Relay, "key", f.Key, "action", string(f.Rule.Action))
	if err := e.apply(f.Relay, f.Rule.Action, SourceSchedule); err != nil {
		e.logger.Error("scheduled action failed", "relay", f.Relay, "key", f.Key, "error", err)
	}
}

// rebuild re-derives every timer from the store. e.mu must be held.
func (e *Engine) rebuild() {
	e.sched.RebuildAll(e.store.ListAll(), e.relays.IsManual)
}

func (e *Engine) broadcast(event string, payload any) {
	if e.hub != nil {
		e.hub.Broadcast(event, payload)
	}
}

func (e *Engine) record(relayID int, state relay.State, source Source) {
	if e.recorder != nil {
		e.recorder.WriteRelayState(relayID, string(state), string(source))
	}
}

// SetBusConnected records a bus connection change and tells every session.
// On (re)connect all timers are re-armed. A lost connection keeps timers
// armed; the cause, if any, is sent as EventMQTTError.
func (e *Engine) SetBusConnected(connected bool, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if connected {
		e.busStatus = BusConnected
		e.broadcast(EventMQTTStatus, e.busStatus)
		e.rebuild()
		e.logger.Info("bus connected", "armed", e.sched.Len())
		return
	}

	e.busStatus = BusDisconnected
	e.broadcast(EventMQTTStatus, e.busStatus)
	if cause != nil {
		e.broadcast(EventMQTTError, ErrorMessage{Message: cause.Error()})
		e.logger.Warn("bus connection lost", "error", cause)
		return
	}
	e.logger.Warn("bus connection lost")
}

// BusConnected reports the last bus state passed to SetBusConnected.
func (e *Engine) BusConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busStatus == BusConnected
}

// ControllerStatus returns the last controller heartbeat payload.
func (e *Engine) ControllerStatus() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controllerStatus
}

// Snapshot returns a consistent copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := e.relays.States()
	modes := e.relays.Modes()
	views := make([]RelayView, 0, e.relays.Count())
	for id := 1; id <= e.relays.Count(); id++ {
		views = append(views, RelayView{ID: id, State: states[id], Mode: modes[id]})
	}

	return Snapshot{
		BusStatus:        e.busStatus,
		ControllerStatus: e.controllerStatus,
		Relays:           views,
		Schedules:        e.store.ListAll(),
		Armed:            e.sched.Armed(),
	}
}

// validate wraps relay id validation with the operation name.
func (e *Engine) validate(op string, relayID int) error {
	if err := e.relays.Validate(relayID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
