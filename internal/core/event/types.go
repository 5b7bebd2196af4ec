package event

// RequestsProcessed is emitted after every drain of the operation queue.
type RequestsProcessed struct {
	Tick       uint64
	Requests   int
	Operations int
	Failures   int
}

// QueueBacklog is emitted when a drain picked up more requests than the
// configured warning threshold. The queue itself is unbounded.
type QueueBacklog struct {
	Tick      uint64
	Pending   int
	Threshold int
}
