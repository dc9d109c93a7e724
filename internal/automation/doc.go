// Package automation is the relay coordination engine for Relay Hub.
//
// It owns the relay registry, the schedule store and the scheduler, and
// arbitrates between the three actors that want to switch relays:
//
//	┌────────────────────┐   ┌──────────────────┐   ┌─────────────────┐
//	│ Sessions (toggle,  │   │ Schedule timers  │   │ Controller      │
//	│ mode, schedules)   │   │ (robfig/cron)    │   │ (auto_control)  │
//	└─────────┬──────────┘   └────────┬─────────┘   └────────┬────────┘
//	          │ manual only           │ manual only          │ auto only
//	          ▼                       ▼                      ▼
//	┌──────────────────────────────────────────────────────────────────┐
//	│ Engine.apply: registry → bus publish (retained) → broadcast      │
//	└──────────────────────────────────────────────────────────────────┘
//
// Mode is the single arbiter. A command from the wrong actor for a relay's
// current mode is dropped and logged at info level; it is not an error.
// Relay confirmations from the controller update the registry directly and
// are broadcast but never published back.
//
// # Thread Safety
//
// Every exported method takes the engine mutex for its whole operation, so
// session commands, bus messages and timer firings never interleave.
//
// # Usage
//
//	engine := automation.NewEngine(automation.Config{Relays: 8, QoS: 0}, mqttClient, hub, log)
//	engine.Start()
//	defer engine.Stop()
//
//	if err := engine.Subscribe(mqttClient); err != nil {
//	    return err
//	}
//	err := engine.Toggle(3)
package automation
