// Package control exposes a liveview engine to remote clients.
//
// A [Server] accepts websocket connections on /ws and dispatches JSON
// commands to a [Controller]:
//
//	{"id": "1", "cmd": "set_min_threshold", "args": {"newMinThreshold": 20}}
//
// Every request gets exactly one response carrying the same id:
//
//	{"id": "1", "ok": true}
//	{"id": "2", "ok": false, "error": "control: unknown command \"x\""}
//
// Commands:
//
//	start_live_view                         begin playback
//	stop_live_view                          stop playback, restore thresholds
//	set_min_threshold {"newMinThreshold": n}
//	set_max_threshold {"newMaxThreshold": n}
//	state                                   playing flag and thresholds
//	greet {"name": s}                       greeting string
//
// The same mux serves /metrics in the Prometheus text format, /healthz and
// /info, which describes the GPU adapter when a device provider is set.
// With a Snapshotter, /snapshot.png returns the last presented frame.
package control
