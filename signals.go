package jana2

import (
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Engine-wide capitan signals describing whole-topology operational events:
// the status ticker, component failures, and backpressure warnings. Signals
// follow the pattern: <subsystem>.<event>.
const (
	SignalTicker              capitan.Signal = "jana2.ticker"
	SignalComponentInitFailed capitan.Signal = "jana2.component.init_failed"
	SignalCallbackException   capitan.Signal = "jana2.callback.exception"
	SignalBackpressureStall   capitan.Signal = "jana2.backpressure.stall"
	SignalArrowFinished       capitan.Signal = "jana2.arrow.finished"
	SignalTopologyFinished    capitan.Signal = "jana2.topology.finished"
	SignalBarrierEntered      capitan.Signal = "jana2.barrier.entered"
	SignalBarrierReleased     capitan.Signal = "jana2.barrier.released"
)

// Field keys used in engine-wide capitan events.
var (
	FieldComponent    = capitan.NewStringKey("component")
	FieldCallback     = capitan.NewStringKey("callback")
	FieldErrorMessage = capitan.NewStringKey("error")
	FieldEventNumber  = capitan.NewKey[uint64]("event_number", "jana2.uint64")
	FieldRunNumber    = capitan.NewKey[uint32]("run_number", "jana2.uint32")
	FieldArrowName    = capitan.NewStringKey("arrow")
	FieldThreadCount  = capitan.NewIntKey("thread_count")
	FieldEventsTotal  = capitan.NewKey[uint64]("events_total", "jana2.uint64")
	FieldThroughputHz = capitan.NewFloat64Key("throughput_hz")
)

// Metric keys registered once on each long-lived component.
const (
	MetricEventsEmitted      = metricz.Key("jana2.events.emitted.total")
	MetricEventsCompleted    = metricz.Key("jana2.events.completed.total")
	MetricEventsDropped      = metricz.Key("jana2.events.dropped.total")
	MetricEventsInFlight     = metricz.Key("jana2.events.inflight")
	MetricQueueSize          = metricz.Key("jana2.queue.size")
	MetricQueueReserved      = metricz.Key("jana2.queue.reserved")
	MetricFactoryHits        = metricz.Key("jana2.factory.cache_hit.total")
	MetricFactoryProcessed   = metricz.Key("jana2.factory.process.total")
	MetricWorkerUsefulMs     = metricz.Key("jana2.worker.useful_ms")
	MetricWorkerIdleMs       = metricz.Key("jana2.worker.idle_ms")
	MetricWorkerRetryMs      = metricz.Key("jana2.worker.retry_ms")
	MetricWorkerSchedMs      = metricz.Key("jana2.worker.scheduler_ms")
	MetricBackpressureStalls = metricz.Key("jana2.backpressure.stalls.total")
)

// Trace span names.
const (
	SpanArrowFire       = tracez.Key("jana2.arrow.fire")
	SpanFactoryProcess  = tracez.Key("jana2.factory.process")
	SpanTopologyBarrier = tracez.Key("jana2.topology.barrier")
)

// Trace tags.
const (
	TagArrowName   = tracez.Tag("jana2.arrow")
	TagFactoryType = tracez.Tag("jana2.factory.type")
	TagEventNumber = tracez.Tag("jana2.event_number")
	TagResult      = tracez.Tag("jana2.result")
	TagError       = tracez.Tag("jana2.error")
)
