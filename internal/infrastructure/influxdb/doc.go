// Package influxdb records relay telemetry in InfluxDB.
//
// A Recorder is handed to the automation engine, which calls it for every
// relay change (measurement relay_state, tagged with relay and source) and
// every controller heartbeat transition (measurement controller_status).
// Points are queued on the client's non-blocking batch writer; rejected
// batches are logged and counted, never returned to the engine.
//
//	rec, err := influxdb.Open(cfg.InfluxDB, log)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer rec.Close()
//	engine.SetRecorder(rec)
package influxdb
