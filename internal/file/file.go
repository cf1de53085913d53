// Package file is the boundary between disk and the in-memory event
// model: size and shape validation on load, SMF rebuild on save.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/multierr"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// MaxFileSize caps accepted MIDI files.
const MaxFileSize = 16 << 20

var (
	// ErrTooLarge marks a file over the size cap.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrMultipleNoteTracks marks a file with more than one note-bearing
	// track, which the per-track chain would clean independently but the
	// caller asked to treat as one part.
	ErrMultipleNoteTracks = errors.New("more than one track contains notes")
)

// Load parses MIDI bytes into a document. Oversized and malformed data
// is rejected before parsing work begins; a file with several
// note-bearing tracks is rejected after parsing.
func Load(data []byte) (*event.Document, []string, error) {
	if len(data) > MaxFileSize {
		return nil, nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), MaxFileSize)
	}
	mid, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse MIDI data: %v", err)
	}
	doc, warnings, err := event.FromSMF(mid)
	if err != nil {
		return nil, nil, err
	}
	if n := doc.NoteTrackCount(); n > 1 {
		return nil, nil, fmt.Errorf("%w: %d", ErrMultipleNoteTracks, n)
	}
	return doc, warnings, nil
}

// LoadFile reads and parses one MIDI file.
func LoadFile(path string) (*event.Document, []string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not stat %v: %v", path, err)
	}
	if st.Size() > MaxFileSize {
		return nil, nil, fmt.Errorf("%w: %v is %d bytes, limit %d", ErrTooLarge, path, st.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read %v: %v", path, err)
	}
	doc, warnings, err := Load(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", path, err)
	}
	return doc, warnings, nil
}

// Save writes the document back out as a standard MIDI file.
func Save(path string, doc *event.Document) (err error) {
	mid := doc.ToSMF()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if _, err := mid.WriteTo(f); err != nil {
		return fmt.Errorf("could not write %v: %v", path, err)
	}
	return nil
}
