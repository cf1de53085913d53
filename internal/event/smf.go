package event

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type noteKey struct {
	ch, pitch uint8
}

type pendingNote struct {
	start    int64
	velocity uint8
}

// FromSMF converts a parsed SMF into the absolute-time document model.
// Tolerated oddities (orphaned note-ons, note-offs without a matching
// note-on) are repaired or skipped and reported as warnings, never errors.
func FromSMF(mid *smf.SMF) (*Document, []string, error) {
	ticks, ok := mid.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported time format %v (need metric ticks)", mid.TimeFormat)
	}
	if ticks <= 0 {
		return nil, nil, fmt.Errorf("non-positive ticks per beat %d", ticks)
	}

	doc := &Document{
		TicksPerBeat: uint32(ticks),
		Format:       MultiTrack,
		Tracks:       make([]Track, len(mid.Tracks)),
	}
	if len(mid.Tracks) <= 1 {
		doc.Format = SingleTrack
	}

	var warnings []string
	for i, t := range mid.Tracks {
		track := Track{Program: -1}
		// (channel, pitch) -> queue of pending note-ons, matched FIFO.
		active := map[noteKey][]pendingNote{}
		var time int64
		for _, ev := range t {
			time += int64(ev.Delta)
			msg := ev.Message
			var ch, pitch, velocity uint8
			var cc, value uint8
			var num, denom uint8
			var bpm float64
			var name string
			var prog uint8
			switch {
			case msg.GetNoteStart(&ch, &pitch, &velocity):
				k := noteKey{ch, pitch}
				active[k] = append(active[k], pendingNote{start: time, velocity: velocity})
			case msg.GetNoteEnd(&ch, &pitch):
				k := noteKey{ch, pitch}
				pending := active[k]
				if len(pending) == 0 {
					warnings = append(warnings, fmt.Sprintf("track %d: note-off without note-on (ch %d pitch %d at tick %d)", i, ch, pitch, time))
					continue
				}
				p := pending[0]
				active[k] = pending[1:]
				if time > p.start {
					track.Notes = append(track.Notes, Note{
						Pitch:    pitch,
						Velocity: p.velocity,
						Channel:  ch,
						Start:    p.start,
						Duration: time - p.start,
					})
				}
			case msg.GetControlChange(&ch, &cc, &value):
				track.Controls = append(track.Controls, Control{
					Controller: cc,
					Value:      value,
					Channel:    ch,
					Tick:       time,
				})
			case msg.GetMetaTempo(&bpm):
				track.Tempos = append(track.Tempos, Tempo{Tick: time, BPM: bpm})
			case msg.GetMetaMeter(&num, &denom):
				if num == 0 || denom == 0 {
					warnings = append(warnings, fmt.Sprintf("track %d: invalid time signature %d/%d at tick %d", i, num, denom, time))
					continue
				}
				track.TimeSigs = append(track.TimeSigs, TimeSig{Tick: time, Num: num, Denom: denom})
			case msg.GetMetaTrackName(&name):
				track.Name = name
			case msg.GetProgramChange(&ch, &prog):
				if track.Program < 0 {
					track.Program = int(prog)
				}
			}
		}
		// Close orphaned note-ons at the last event time of the track.
		if len(active) > 0 {
			for k, pending := range active {
				for _, p := range pending {
					if time <= p.start {
						continue
					}
					warnings = append(warnings, fmt.Sprintf("track %d: note-on without note-off (ch %d pitch %d at tick %d), closed at track end", i, k.ch, k.pitch, p.start))
					track.Notes = append(track.Notes, Note{
						Pitch:    k.pitch,
						Velocity: p.velocity,
						Channel:  k.ch,
						Start:    p.start,
						Duration: time - p.start,
					})
				}
			}
		}
		track.SortNotes()
		doc.Tracks[i] = track
	}
	return doc, warnings, nil
}

// Event ordering within one tick: meta first, then note-offs, then other
// channel messages, then note-ons. Keeps notes from sticking and notation
// stable, same discipline as sorting note-offs first on the wire.
const (
	orderMeta = iota
	orderNoteOff
	orderOther
	orderNoteOn
)

type timedMessage struct {
	tick  int64
	order int
	msg   smf.Message
}

// ToSMF rebuilds a standard MIDI file from the document.
func (d *Document) ToSMF() *smf.SMF {
	out := smf.New()
	out.TimeFormat = smf.MetricTicks(d.TicksPerBeat)
	for i := range d.Tracks {
		t := &d.Tracks[i]
		events := make([]timedMessage, 0, 2*len(t.Notes)+len(t.Controls)+len(t.Tempos)+len(t.TimeSigs)+2)
		if t.Name != "" {
			events = append(events, timedMessage{0, orderMeta, smf.MetaTrackSequenceName(t.Name)})
		}
		if t.Program >= 0 {
			ch := uint8(0)
			if len(t.Notes) > 0 {
				ch = t.Notes[0].Channel
			}
			events = append(events, timedMessage{0, orderOther, smf.Message(midi.ProgramChange(ch, uint8(t.Program)))})
		}
		for _, tp := range t.Tempos {
			events = append(events, timedMessage{tp.Tick, orderMeta, smf.MetaTempo(tp.BPM)})
		}
		for _, ts := range t.TimeSigs {
			events = append(events, timedMessage{ts.Tick, orderMeta, smf.MetaMeter(ts.Num, ts.Denom)})
		}
		for _, c := range t.Controls {
			events = append(events, timedMessage{c.Tick, orderOther, smf.Message(midi.ControlChange(c.Channel, c.Controller, c.Value))})
		}
		for _, n := range t.Notes {
			events = append(events, timedMessage{n.Start, orderNoteOn, smf.Message(midi.NoteOn(n.Channel, n.Pitch, n.Velocity))})
			events = append(events, timedMessage{n.End(), orderNoteOff, smf.Message(midi.NoteOff(n.Channel, n.Pitch))})
		}
		sort.SliceStable(events, func(a, b int) bool {
			if events[a].tick != events[b].tick {
				return events[a].tick < events[b].tick
			}
			return events[a].order < events[b].order
		})
		var track smf.Track
		var prev int64
		for _, ev := range events {
			track.Add(uint32(ev.tick-prev), ev.msg)
			prev = ev.tick
		}
		track.Close(0)
		out.Add(track)
	}
	return out
}
