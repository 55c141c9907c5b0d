package dashboard

import (
	"sync"

	"github.com/rileyhilliard/rmon/internal/monitor"
)

// DefaultHistorySize is the default number of data points to retain per metric.
const DefaultHistorySize = 60

// History keeps recent readings per host in ring buffers for sparklines.
// It is keyed by host ID so renaming a host keeps its graphs.
type History struct {
	mu    sync.RWMutex
	size  int
	hosts map[string]*hostHistory
}

type hostHistory struct {
	cpu      *ringBuffer // percent, only polls with a computable usage
	ram      *ringBuffer // percent
	download *ringBuffer // bytes per second
	upload   *ringBuffer // bytes per second
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
}

// NewHistory creates a history tracker keeping size points per metric.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:  size,
		hosts: make(map[string]*hostHistory),
	}
}

// Push records snap. CPU is skipped when the snapshot has no usage value so
// the first poll after a restart does not draw a false zero.
func (h *History) Push(snap *monitor.Snapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.getOrCreate(snap.HostID)
	if snap.CPUUsage != nil {
		hist.cpu.push(*snap.CPUUsage * 100)
	}
	if snap.RAMTotal > 0 {
		hist.ram.push(snap.RAMFraction() * 100)
	}
	hist.download.push(float64(max(snap.Download, 0)))
	hist.upload.push(float64(max(snap.Upload, 0)))
}

// CPU returns up to count CPU percentages, oldest first.
func (h *History) CPU(id string, count int) []float64 {
	return h.get(id, count, func(hh *hostHistory) *ringBuffer { return hh.cpu })
}

// RAM returns up to count memory percentages, oldest first.
func (h *History) RAM(id string, count int) []float64 {
	return h.get(id, count, func(hh *hostHistory) *ringBuffer { return hh.ram })
}

// Network returns up to count download and upload rates, oldest first.
func (h *History) Network(id string, count int) (download, upload []float64) {
	download = h.get(id, count, func(hh *hostHistory) *ringBuffer { return hh.download })
	upload = h.get(id, count, func(hh *hostHistory) *ringBuffer { return hh.upload })
	return download, upload
}

// Count returns how many polls have been recorded for a host.
func (h *History) Count(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hist, ok := h.hosts[id]; ok {
		return hist.download.count
	}
	return 0
}

// Clear removes all history for a host.
func (h *History) Clear(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hosts, id)
}

func (h *History) get(id string, count int, pick func(*hostHistory) *ringBuffer) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.hosts[id]
	if !ok {
		return nil
	}
	return pick(hist).last(count)
}

// getOrCreate must be called with h.mu held.
func (h *History) getOrCreate(id string) *hostHistory {
	hist, ok := h.hosts[id]
	if !ok {
		hist = &hostHistory{
			cpu:      newRingBuffer(h.size),
			ram:      newRingBuffer(h.size),
			download: newRingBuffer(h.size),
			upload:   newRingBuffer(h.size),
		}
		h.hosts[id] = hist
	}
	return hist
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size)}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// last returns the newest count values in chronological order.
func (r *ringBuffer) last(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	count = min(count, r.count)

	size := len(r.data)
	start := (r.head - count + size) % size
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = r.data[(start+i)%size]
	}
	return out
}
