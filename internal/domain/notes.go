package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is one attributed block of a booking or order audit trail.
type Note struct {
	ID     string    `json:"id" bson:"_id"`
	At     time.Time `json:"at" bson:"at"`
	Author string    `json:"author" bson:"author"`
	Body   string    `json:"body" bson:"body"`
}

func NewNote(body, author string, at time.Time) Note {
	return Note{
		ID:     uuid.NewString(),
		At:     at,
		Author: author,
		Body:   strings.TrimSpace(body),
	}
}

func ValidateNoteBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return Invalid("note body must not be empty")
	}
	return nil
}

// NoteTimeLayout matches the studio's day-first local format.
const NoteTimeLayout = "2/1/2006, 15.04.05"

// RenderNotes produces the legacy text form of the trail: one
// "[timestamp] - author" header per block, blocks separated by a blank line.
func RenderNotes(trail []Note, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	blocks := make([]string, 0, len(trail))
	for _, n := range trail {
		header := fmt.Sprintf("[%s]", n.At.In(loc).Format(NoteTimeLayout))
		if n.Author != "" {
			header += " - " + n.Author
		}
		blocks = append(blocks, header+"\n"+n.Body)
	}
	return strings.Join(blocks, "\n\n")
}

// EditNote returns a copy of trail with the body of noteID replaced. The bool
// reports whether the note was present.
func EditNote(trail []Note, noteID, body string) ([]Note, bool) {
	out := make([]Note, len(trail))
	copy(out, trail)
	for i := range out {
		if out[i].ID == noteID {
			out[i].Body = strings.TrimSpace(body)
			return out, true
		}
	}
	return out, false
}

// RemoveNote drops noteID from a copy of trail; absent ids leave it unchanged.
func RemoveNote(trail []Note, noteID string) []Note {
	out := make([]Note, 0, len(trail))
	for _, n := range trail {
		if n.ID != noteID {
			out = append(out, n)
		}
	}
	return out
}
