// Package calendar projects the rows of a colloscope formset onto calendar
// events and builds the field values of a new time slot. The calendar widget
// itself stays outside: it consumes Events and calls AddSlot/DeleteRow on the
// registry when the user clicks.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-formset/pkg/formset"
)

var (
	// ErrInvalidDuration reports a duration value in neither ISO-8601 nor
	// clock form.
	ErrInvalidDuration = errors.New("calendar: invalid duration")
	// ErrInvalidTime reports an unparseable date-time value.
	ErrInvalidTime = errors.New("calendar: invalid time")
)

// DefaultSlotDuration is the length of a slot without end or duration.
const DefaultSlotDuration = time.Hour

// Mapping names the row fields an event is read from.
type Mapping struct {
	Start           string
	End             string
	Duration        string
	StudentDuration string
	Title           string
	NewTitle        string
	// Location applies to naive date-times. Nil means UTC.
	Location *time.Location
}

// DefaultMapping matches the colle slot formset: debut, fin, duree and
// duree_etudiant.
func DefaultMapping() Mapping {
	return Mapping{
		Start:           "debut",
		End:             "fin",
		Duration:        "duree",
		StudentDuration: "duree_etudiant",
		Title:           "Colle",
		NewTitle:        "Nouvelle colle",
		Location:        time.UTC,
	}
}

// withDefaults fills blank fields from DefaultMapping.
func (m Mapping) withDefaults() Mapping {
	def := DefaultMapping()
	if m.Start == "" {
		m.Start = def.Start
	}
	if m.End == "" {
		m.End = def.End
	}
	if m.Duration == "" {
		m.Duration = def.Duration
	}
	if m.StudentDuration == "" {
		m.StudentDuration = def.StudentDuration
	}
	if m.Title == "" {
		m.Title = def.Title
	}
	if m.NewTitle == "" {
		m.NewTitle = def.NewTitle
	}
	if m.Location == nil {
		m.Location = def.Location
	}
	return m
}

// Event is one calendar entry backed by a formset row.
type Event struct {
	ID       formset.RowID `json:"id"`
	Title    string        `json:"title"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Position int           `json:"position"`
	Original bool          `json:"original"`
}

// Source lists registry rows. *formset.Registry satisfies it.
type Source interface {
	ReadAll() []formset.Row
}

// Adder appends rows. *formset.Registry satisfies it.
type Adder interface {
	AddRow(values map[string]string) (formset.RowID, bool)
	Get(id formset.RowID) (formset.Row, error)
}

// Events returns one event per live row with a start time, ordered by
// position. Rows marked for deletion are left out.
func Events(src Source, m Mapping) ([]Event, error) {
	m = m.withDefaults()
	rows := src.ReadAll()
	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		ev, ok, err := EventFor(row, m)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, ev)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Position < events[j].Position })
	return events, nil
}

// EventFor converts a single row. ok is false for deleted rows and rows
// without a start time.
func EventFor(row formset.Row, m Mapping) (ev Event, ok bool, err error) {
	m = m.withDefaults()
	if row.Deleted || row.Values[m.Start] == "" {
		return Event{}, false, nil
	}
	start, err := ParseTime(row.Values[m.Start], m.Location)
	if err != nil {
		return Event{}, false, fmt.Errorf("calendar: row %s %s: %w", row.ID, m.Start, err)
	}
	end, err := endOf(row.Values, start, m)
	if err != nil {
		return Event{}, false, fmt.Errorf("calendar: row %s: %w", row.ID, err)
	}
	return Event{
		ID:       row.ID,
		Title:    m.Title,
		Start:    start,
		End:      end,
		Position: row.Position,
		Original: row.Original,
	}, true, nil
}

func endOf(values map[string]string, start time.Time, m Mapping) (time.Time, error) {
	if raw := values[m.End]; raw != "" {
		return ParseTime(raw, m.Location)
	}
	if raw := values[m.Duration]; raw != "" {
		d, err := ParseDuration(raw)
		if err != nil {
			return time.Time{}, err
		}
		return start.Add(d), nil
	}
	return start.Add(DefaultSlotDuration), nil
}

// SlotValues builds the AddRow values of a new slot: start in RFC 3339 UTC,
// duration as ISO-8601 and the per-student duration in minutes. A zero
// studentDuration leaves that field to the template default.
func SlotValues(m Mapping, start time.Time, duration, studentDuration time.Duration) map[string]string {
	m = m.withDefaults()
	if duration <= 0 {
		duration = DefaultSlotDuration
	}
	values := map[string]string{
		m.Start:    start.UTC().Format(time.RFC3339),
		m.Duration: FormatDuration(duration),
	}
	if studentDuration > 0 {
		values[m.StudentDuration] = formatMinutes(studentDuration)
	}
	return values
}

// AddSlot appends a slot row and returns its event. It fails with
// formset.ErrCapacityExceeded once MAX_NUM_FORMS rows exist.
func AddSlot(reg Adder, m Mapping, start time.Time, duration, studentDuration time.Duration) (Event, error) {
	m = m.withDefaults()
	if duration <= 0 {
		duration = DefaultSlotDuration
	}
	id, ok := reg.AddRow(SlotValues(m, start, duration, studentDuration))
	if !ok {
		return Event{}, fmt.Errorf("calendar: add slot at %s: %w", start.Format(time.RFC3339), formset.ErrCapacityExceeded)
	}
	row, err := reg.Get(id)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:       id,
		Title:    m.NewTitle,
		Start:    start,
		End:      start.Add(duration),
		Position: row.Position,
	}, nil
}
