package vocal

// History is a bounded FIFO of sample scores. Appending beyond capacity
// drops the oldest entry, so the stored values are always the most recent
// appends in chronological order.
type History struct {
	values   []float64
	capacity int
}

func NewHistory(capacity int) *History {
	return &History{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

func (h *History) Append(v float64) {
	if len(h.values) >= h.capacity {
		copy(h.values, h.values[1:])
		h.values = h.values[:len(h.values)-1]
	}
	h.values = append(h.values, v)
}

func (h *History) Len() int {
	return len(h.values)
}

// Values returns a copy of the stored scores, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

// Mean returns the average of the stored scores. The second return is false
// when the history is empty.
func (h *History) Mean() (float64, bool) {
	if len(h.values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range h.values {
		sum += v
	}
	return sum / float64(len(h.values)), true
}

func (h *History) Reset() {
	h.values = h.values[:0]
}
