// Package mqtt provides MQTT client connectivity for Relay Hub.
//
// This package manages:
//   - Connection to the broker with auto-reconnect (tcp, ssl, ws, wss)
//   - Message publishing, blocking or fire-and-forget
//   - Topic subscriptions restored on every reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The broker decouples the hub from the relay controller:
//
//	Relay Hub ↔ MQTT Broker ↔ Relay Controller
//
// The controller publishes a heartbeat on home/devices/status, confirms each
// relay on home/devices/relay{N}/status and sends automation commands on
// home/devices/auto_control. The hub publishes target states, retained, on
// home/devices/relay{N}.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil && !mqtt.IsPending(err) {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.ControllerStatus(), 0,
//	    func(topic string, payload []byte) error {
//	        log.Printf("controller: %s", payload)
//	        return nil
//	    })
//
//	client.PublishAsync(mqtt.Topics{}.RelayCommand(3), []byte("ON"), 0, true)
package mqtt
