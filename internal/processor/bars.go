package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// barMap answers bar-boundary queries for a document, following the
// conductor track's time-signature changes. Signature changes are taken
// to land on bar boundaries; a whole note is 4 * ticksPerBeat.
type barMap struct {
	segments []barSegment
}

type barSegment struct {
	start  int64
	barLen int64
}

func newBarMap(tpb int64, sigs []event.TimeSig) barMap {
	barLen := func(num, denom uint8) int64 {
		return 4 * tpb * int64(num) / int64(denom)
	}
	m := barMap{segments: []barSegment{{start: 0, barLen: barLen(4, 4)}}}
	for _, sig := range sigs {
		seg := barSegment{start: sig.Tick, barLen: barLen(sig.Num, sig.Denom)}
		if sig.Tick == 0 {
			m.segments[0] = seg
			continue
		}
		m.segments = append(m.segments, seg)
	}
	return m
}

func (m barMap) segmentAt(tick int64) barSegment {
	seg := m.segments[0]
	for _, s := range m.segments[1:] {
		if s.start > tick {
			break
		}
		seg = s
	}
	return seg
}

// BarTicksAt returns the bar length in ticks active at the given tick.
func (m barMap) BarTicksAt(tick int64) int64 {
	return m.segmentAt(tick).barLen
}

// BarStart returns the first tick of the bar containing the given tick.
func (m barMap) BarStart(tick int64) int64 {
	seg := m.segmentAt(tick)
	if tick < seg.start {
		return seg.start
	}
	return seg.start + (tick-seg.start)/seg.barLen*seg.barLen
}

// BarEnd returns the first tick after the bar containing the given tick.
func (m barMap) BarEnd(tick int64) int64 {
	return m.BarStart(tick) + m.BarTicksAt(tick)
}

// TickAtBar returns the first tick of the zero-based bar, walking
// through signature changes rather than assuming one bar length.
func (m barMap) TickAtBar(bar int) int64 {
	if bar <= 0 {
		return 0
	}
	remaining := int64(bar)
	cur := m.segments[0]
	for _, s := range m.segments[1:] {
		n := (s.start - cur.start) / cur.barLen
		if n >= remaining {
			break
		}
		remaining -= n
		cur = s
	}
	return cur.start + remaining*cur.barLen
}
