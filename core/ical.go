package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const icalProductId = "-//LST//Onsite availability//EN"

const (
	icalDateLayout     = "20060102"
	icalDateTimeLayout = "20060102T150405"
)

// ExportICS renders records as a VCALENDAR. Full-day entries are written as
// DATE values whose DTEND is already exclusive, matching the stored form.
func ExportICS(name string, records []*EventRecord, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icalProductId)
	cal.SetXWRCalName(name)

	for _, record := range records {
		ev := cal.AddEvent(record.Id + "@onsite-availability")
		ev.SetDtStampTime(stamp)
		ev.SetSummary(record.Title())
		ev.SetLocation(string(record.Location))
		ev.SetProperty(ical.ComponentProperty("COLOR"), ColorOf(record.Location))

		if record.Notes != "" {
			ev.SetDescription(record.Notes)
		}

		if !record.CreatedAt.IsZero() {
			ev.SetCreatedTime(record.CreatedAt)
		}

		if record.FullDay {
			ev.SetAllDayStartAt(record.Start)
			ev.SetAllDayEndAt(record.End)
		} else {
			ev.SetStartAt(record.Start)
			ev.SetEndAt(record.End)
		}
	}

	return cal.Serialize()
}

// ImportedEntry is one VEVENT read back as form input. Err is set when the
// VEVENT could not be understood at all.
type ImportedEntry struct {
	UID   string
	Input *EventInput
	Err   error
}

// ParseICS reads VEVENTs into inclusive form input, ready for ToStorage.
// Whether an entry is full day comes from the DTSTART/DTEND value shapes.
func ParseICS(r io.Reader, loc *time.Location) ([]ImportedEntry, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	entries := make([]ImportedEntry, 0)

	for _, ve := range cal.Events() {
		input, err := parseVEvent(ve, loc)
		entries = append(entries, ImportedEntry{UID: ve.Id(), Input: input, Err: err})
	}

	return entries, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (*EventInput, error) {
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return nil, fmt.Errorf("vevent %s: missing DTSTART", ve.Id())
	}

	endValue := ""

	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if dtEnd != nil {
		endValue = dtEnd.Value
	}

	input := &EventInput{FullDay: ClassifyFullDay(dtStart.Value, endValue)}

	summary := propertyValue(ve, ical.ComponentPropertySummary)
	place := propertyValue(ve, ical.ComponentPropertyLocation)

	name, suffix, found := strings.Cut(summary, " - ")
	if !found {
		name = summary
	}

	if place == "" {
		place = suffix
	}

	input.PersonName = name
	input.Location, _ = ParseLocation(place)
	input.Notes = propertyValue(ve, ical.ComponentPropertyDescription)

	if input.FullDay {
		start, err := time.ParseInLocation(icalDateLayout, dtStart.Value, loc)
		if err != nil {
			return nil, fmt.Errorf("vevent %s: malformed DTSTART %q: %w", ve.Id(), dtStart.Value, err)
		}

		input.StartDate = start

		if endValue != "" {
			end, err := time.ParseInLocation(icalDateLayout, endValue, loc)
			if err != nil {
				return nil, fmt.Errorf("vevent %s: malformed DTEND %q: %w", ve.Id(), endValue, err)
			}

			// DTEND of a DATE event is exclusive, DTEND equal to DTSTART is a single day
			if !end.Equal(start) {
				last := end.AddDate(0, 0, -1)
				input.EndDate = &last
			}
		}

		return input, nil
	}

	start, err := parseICalDateTime(dtStart, loc)
	if err != nil {
		return nil, fmt.Errorf("vevent %s: malformed DTSTART %q: %w", ve.Id(), dtStart.Value, err)
	}

	end := start

	if dtEnd != nil && dtEnd.Value != "" {
		end, err = parseICalDateTime(dtEnd, loc)
		if err != nil {
			return nil, fmt.Errorf("vevent %s: malformed DTEND %q: %w", ve.Id(), dtEnd.Value, err)
		}
	}

	startClock := Clock{Hour: start.Hour(), Minute: start.Minute()}
	endClock := Clock{Hour: end.Hour(), Minute: end.Minute()}
	endDate := dateOf(end)

	input.StartDate = dateOf(start)
	input.EndDate = &endDate
	input.StartTime = &startClock
	input.EndTime = &endClock

	return input, nil
}

func parseICalDateTime(prop *ical.IANAProperty, loc *time.Location) (time.Time, error) {
	value := prop.Value

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(icalDateTimeLayout+"Z", value)
		if err != nil {
			return time.Time{}, err
		}

		return t.In(loc), nil
	}

	zone := loc

	if tzids, ok := prop.ICalParameters[string(ical.ParameterTzid)]; ok && len(tzids) > 0 {
		if tz, err := time.LoadLocation(tzids[0]); err == nil {
			zone = tz
		}
	}

	t, err := time.ParseInLocation(icalDateTimeLayout, value, zone)
	if err != nil {
		return time.Time{}, err
	}

	return t.In(loc), nil
}

func propertyValue(ve *ical.VEvent, property ical.ComponentProperty) string {
	prop := ve.GetProperty(property)
	if prop == nil {
		return ""
	}

	return strings.TrimSpace(prop.Value)
}
