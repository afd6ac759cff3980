// Package notify delivers repository lifecycle events (created, updated,
// deleted) raised by the reconciliation engine.
//
// Delivery is fire-and-forget from the engine's point of view: the engine
// calls Sink.Notify after each mutation and never waits for, or retries, the
// downstream consumer. The Dispatcher provides the queue between both sides.
//
// # Sinks
//
//   - Dispatcher: bounded queue drained by a single worker goroutine.
//   - LogSink: writes every event through zap.
//   - Recorder: keeps the most recent events in memory.
//   - Multi: fans an event out to several sinks.
//
// # Usage
//
//	recorder := notify.NewRecorder(100)
//	d := notify.NewDispatcher(notify.Multi{notify.NewLogSink(log), recorder}, 256, log)
//	defer d.Close()
package notify
