package notifier

import "sync/atomic"

// Stage identifies one step of the notification pipeline.
type Stage string

const (
	StagePersist Stage = "persist"
	StageLive    Stage = "live"
	StagePush    Stage = "push"
	StageTask    Stage = "task"
)

var stages = []Stage{StagePersist, StageLive, StagePush, StageTask}

// Observer receives the outcome of every pipeline step.
type Observer interface {
	Delivered(stage Stage, userID string)
	Failed(stage Stage, userID string, err error)
}

type StageStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

type counters struct {
	delivered atomic.Int64
	failed    atomic.Int64
}

// Monitor counts outcomes per stage. It is safe for concurrent use.
type Monitor struct {
	stages map[Stage]*counters
}

func NewMonitor() *Monitor {
	m := &Monitor{stages: make(map[Stage]*counters, len(stages))}
	for _, s := range stages {
		m.stages[s] = &counters{}
	}
	return m
}

func (m *Monitor) Delivered(stage Stage, _ string) {
	if c, ok := m.stages[stage]; ok {
		c.delivered.Add(1)
	}
}

func (m *Monitor) Failed(stage Stage, _ string, _ error) {
	if c, ok := m.stages[stage]; ok {
		c.failed.Add(1)
	}
}

// Snapshot returns the current counters keyed by stage name.
func (m *Monitor) Snapshot() map[Stage]StageStats {
	out := make(map[Stage]StageStats, len(m.stages))
	for s, c := range m.stages {
		out[s] = StageStats{Delivered: c.delivered.Load(), Failed: c.failed.Load()}
	}
	return out
}
