package sim

import "sync"

const (
	commandBufferOccupancyMetricKey = "match_command_buffer_occupancy"
	commandBufferOverflowMetricKey  = "match_command_buffer_overflow_total"
	commandBufferDroppedMetricKey   = "match_command_buffer_dropped_total"
)

// CommandBuffer is the per-lobby bounded mailbox: a fixed-size ring safe
// for concurrent producers and one consumer. When a push would overflow,
// the OLDEST staged command of the same actor is evicted, never the new
// one, so a slow lobby sheds stale inputs first.
type CommandBuffer struct {
	mu      sync.Mutex
	data    []Command
	head    int
	tail    int
	count   int
	metrics telemetryMetrics
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		data:    make([]Command, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of commands the buffer can hold.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a command. On a full buffer it evicts the actor's oldest
// staged command; if the actor has none staged, the push is refused.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if !b.evictOldestLocked(cmd.ActorID) {
			if b.metrics != nil {
				b.metrics.Add(commandBufferOverflowMetricKey, 1)
			}
			return false
		}
		if b.metrics != nil {
			b.metrics.Add(commandBufferDroppedMetricKey, 1)
		}
	}
	b.data[b.tail] = cmd
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	return true
}

// evictOldestLocked removes the actor's oldest staged command, compacting
// the ring in place.
func (b *CommandBuffer) evictOldestLocked(actorID string) bool {
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		if b.data[idx].ActorID != actorID {
			continue
		}
		for j := i; j > 0; j-- {
			dst := (b.head + j) % len(b.data)
			src := (b.head + j - 1) % len(b.data)
			b.data[dst] = b.data[src]
		}
		b.data[b.head] = Command{}
		b.head = (b.head + 1) % len(b.data)
		b.count--
		return true
	}
	return false
}

// Drain returns all staged commands in FIFO order and clears the buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	commands := make([]Command, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		commands[i] = b.data[idx]
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.storeOccupancyLocked()
	return commands
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *CommandBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(b.count))
}
