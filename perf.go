package jana2

import "time"

// ArrowSummary is a point-in-time performance snapshot of one Arrow, field
// shape carried verbatim from the original engine's JPerfSummary.h.
type ArrowSummary struct {
	Name             string
	IsParallel       bool
	IsSource         bool
	IsSink           bool
	ThreadCount      int
	RunningUpstreams int
	HasBackpressure  bool
	MessagesPending  int
	Threshold        int
	Chunksize        int

	TotalMessagesCompleted uint64
	LastMessagesCompleted  uint64
	AvgLatency             time.Duration
	LastLatency            time.Duration
	AvgQueueLatency        time.Duration
	AvgQueueOverheadFrac   float64
	QueueVisitCount        uint64
}

// PerfSummary rolls up ArrowSummary and WorkerSummary snapshots for an
// entire running Topology, matching the original engine's top-level
// performance report.
type PerfSummary struct {
	MonotonicEventsCompleted uint64
	TotalEventsCompleted     uint64
	LatestEventsCompleted    uint64
	ThreadCount              int
	Uptime                   time.Duration
	ThroughputHz             float64

	SequentialBottleneck string
	ParallelBottleneck   string
	EfficiencyFrac       float64

	Arrows  []ArrowSummary
	Workers []WorkerSummary
}

// summarizeArrow builds an ArrowSummary for a, reading only state exposed
// through the Arrow interface plus kind-specific accessors where available.
func summarizeArrow(a Arrow) ArrowSummary {
	s := ArrowSummary{
		Name:             a.Name(),
		IsParallel:       a.IsParallel(),
		ThreadCount:      a.ThreadCount(),
		RunningUpstreams: a.RunningUpstreams(),
	}
	switch v := a.(type) {
	case *SourceArrow:
		s.IsSource = true
		s.Chunksize = v.chunksize
		if v.out != nil {
			s.MessagesPending = v.out.Size()
			s.HasBackpressure = v.out.IsFull()
		}
	case *SinkArrow:
		s.IsSink = true
		s.TotalMessagesCompleted = v.Completed()
		if v.in != nil {
			s.MessagesPending = v.in.Size()
		}
	case *MapArrow:
		s.Chunksize = v.chunksize
		if v.in != nil {
			s.MessagesPending = v.in.Size()
		}
	case *SplitArrow:
		if v.in != nil {
			s.MessagesPending = v.in.Size()
		}
	case *FoldArrow:
		if v.in != nil {
			s.MessagesPending = v.in.Size()
		}
	}
	return s
}
