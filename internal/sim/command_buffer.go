package sim

import "sync"

const (
	commandBufferOccupancyMetricKey = "sim.command_buffer.occupancy"
	commandBufferOverflowMetricKey  = "sim.command_buffer.overflow_total"
)

// CommandBuffer stages inputs between ticks up to a fixed capacity. Read
// loops push concurrently; the tick goroutine takes the whole batch at once.
type CommandBuffer struct {
	mu        sync.Mutex
	staged    []Command
	capacity  int
	overflows map[CommandType]uint64
	metrics   telemetryMetrics
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		staged:    make([]Command, 0, capacity),
		capacity:  capacity,
		overflows: make(map[CommandType]uint64),
		metrics:   metrics,
	}
}

func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return b.capacity
}

// Push stages cmd and reports false once the batch is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.staged) >= b.capacity {
		b.overflows[cmd.Type]++
		if b.metrics != nil {
			b.metrics.Add(commandBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.staged = append(b.staged, cmd)
	b.reportOccupancy()
	return true
}

// Drain hands the staged batch to the caller in arrival order. The buffer
// starts a new batch, so the returned slice is never written again.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.staged) == 0 {
		return nil
	}
	batch := b.staged
	b.staged = make([]Command, 0, b.capacity)
	b.reportOccupancy()
	return batch
}

func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.staged)
}

// Overflows reports how many pushes were refused, per command type.
func (b *CommandBuffer) Overflows() map[CommandType]uint64 {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[CommandType]uint64, len(b.overflows))
	for kind, count := range b.overflows {
		out[kind] = count
	}
	return out
}

func (b *CommandBuffer) reportOccupancy() {
	if b.metrics != nil {
		b.metrics.Store(commandBufferOccupancyMetricKey, uint64(len(b.staged)))
	}
}
