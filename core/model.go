package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	DateTimeLayout = "2006-01-02T15:04:05"
)

type Location string

const (
	LocationCALP   Location = "CALP"
	LocationORM    Location = "ORM"
	LocationRemote Location = "REMOTE"
	LocationMIRCA  Location = "MIRCA"
)

// FallbackColor is assigned to locations outside the enumeration.
const FallbackColor = "#808080"

var locationColors = map[Location]string{
	LocationCALP:   "#002642",
	LocationORM:    "#840032",
	LocationRemote: "#e59500",
	LocationMIRCA:  "#008000",
}

// Locations lists the enumeration in the order the entry form offers it.
var Locations = []Location{LocationCALP, LocationORM, LocationRemote, LocationMIRCA}

// ParseLocation is case-insensitive. Unknown values are returned as-is with ok=false.
func ParseLocation(s string) (Location, bool) {
	loc := Location(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := locationColors[loc]

	return loc, ok
}

func (l Location) Valid() bool {
	_, ok := locationColors[l]
	return ok
}

func ColorOf(l Location) string {
	color, ok := locationColors[l]
	if !ok {
		return FallbackColor
	}

	return color
}

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}

	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) After(other Clock) bool {
	return c.Hour > other.Hour || (c.Hour == other.Hour && c.Minute > other.Minute)
}

// EventInput is what a person enters in the add-entry form, both ends inclusive.
type EventInput struct {
	PersonName string
	Location   Location
	FullDay    bool
	StartDate  time.Time
	EndDate    *time.Time
	StartTime  *Clock
	EndTime    *Clock
	Notes      string
	CreatedBy  string
}

// EventRecord is the persisted entity. It occupies [Start, End).
type EventRecord struct {
	Id         string     `json:"id,omitempty"`
	PersonName string     `json:"name_person"`
	Location   Location   `json:"place"`
	FullDay    bool       `json:"all_day"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Color      string     `json:"color"`
	Notes      string     `json:"notes,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	DeletedBy  string     `json:"deleted_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

func (r *EventRecord) Title() string {
	return fmt.Sprintf("%s - %s", r.PersonName, r.Location)
}

// DisplayEvent is an EventRecord with the end bound turned back into the
// inclusive form people reason in.
type DisplayEvent struct {
	Id         string
	Title      string
	PersonName string
	Location   Location
	FullDay    bool
	Start      time.Time
	End        time.Time
	Color      string
	Notes      string
	CreatedBy  string
}

func (d DisplayEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Id         string   `json:"id,omitempty"`
		Title      string   `json:"title"`
		PersonName string   `json:"name_person"`
		Location   Location `json:"place"`
		FullDay    bool     `json:"all_day"`
		Start      string   `json:"start"`
		End        string   `json:"end"`
		Color      string   `json:"color"`
		Notes      string   `json:"notes,omitempty"`
		CreatedBy  string   `json:"created_by,omitempty"`
	}{
		Id:         d.Id,
		Title:      d.Title,
		PersonName: d.PersonName,
		Location:   d.Location,
		FullDay:    d.FullDay,
		Start:      FormatBound(d.Start, d.FullDay),
		End:        FormatBound(d.End, d.FullDay),
		Color:      d.Color,
		Notes:      d.Notes,
		CreatedBy:  d.CreatedBy,
	})
}

// FeedEntry is one item of the calendar grid feed. The grid treats End as exclusive.
type FeedEntry struct {
	Id     string `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"allDay"`
	Color  string `json:"color"`
}

func NewFeedEntry(record *EventRecord) FeedEntry {
	return FeedEntry{
		Id:     record.Id,
		Title:  record.Title(),
		Start:  FormatBound(record.Start, record.FullDay),
		End:    FormatBound(record.End, record.FullDay),
		AllDay: record.FullDay,
		Color:  ColorOf(record.Location),
	}
}

func FormatBound(t time.Time, fullDay bool) string {
	if fullDay {
		return t.Format(DateLayout)
	}

	return t.Format(DateTimeLayout)
}
