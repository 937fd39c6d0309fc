package observability

// DropTracker turns cumulative per-reason counts into counter increments, so
// a decoder can keep plain uint64 stats and still feed prometheus.
type DropTracker struct {
	module string
	last   map[string]uint64
}

func NewDropTracker(module string) *DropTracker {
	return &DropTracker{module: module, last: make(map[string]uint64)}
}

// Observe records the growth of each reason since the previous call.
func (d *DropTracker) Observe(counts map[string]uint64) {
	for reason, total := range counts {
		prev := d.last[reason]
		if total > prev {
			RecordDrops(d.module, reason, total-prev)
		}
		d.last[reason] = total
	}
}
