package core

import (
	"strings"
	"time"
)

// ToStorage validates input and converts it into a pre-insert record.
// Full-day records get an exclusive end one day past the last chosen day;
// timed records keep the entered end exactly. Id is left for the store.
func ToStorage(input EventInput) (*EventRecord, error) {
	name := strings.TrimSpace(input.PersonName)
	if name == "" {
		return nil, newValidationError(MissingName, "name_person", "person's name is required")
	}

	if !input.FullDay {
		if input.StartTime == nil {
			return nil, newValidationError(MissingTime, "start_time", "start time is required")
		}

		if input.EndTime == nil {
			return nil, newValidationError(MissingTime, "end_time", "end time is required")
		}
	}

	startDate := dateOf(input.StartDate)
	endDate := startDate

	if input.EndDate != nil {
		endDate = dateOf(*input.EndDate)
	}

	if endDate.Before(startDate) {
		return nil, newValidationError(EndBeforeStart, "end_date", "end date cannot be before start date")
	}

	record := &EventRecord{
		PersonName: name,
		Location:   input.Location,
		FullDay:    input.FullDay,
		Color:      ColorOf(input.Location),
		Notes:      input.Notes,
		CreatedBy:  input.CreatedBy,
	}

	if input.FullDay {
		record.Start = startDate
		record.End = endDate.AddDate(0, 0, 1)

		return record, nil
	}

	if sameDay(startDate, endDate) && input.StartTime.After(*input.EndTime) {
		return nil, newValidationError(EndBeforeStart, "end_time", "end time cannot be before start time on the same day")
	}

	record.Start = combine(startDate, *input.StartTime)
	record.End = combine(endDate, *input.EndTime)

	return record, nil
}

// ToDisplay converts a stored record into its inclusive display form.
// It must be applied once per stored record; feeding a DisplayEvent back in
// requires a round trip through ToStorage.
func ToDisplay(record *EventRecord) DisplayEvent {
	end := record.End
	if record.FullDay {
		end = end.AddDate(0, 0, -1)
	}

	return DisplayEvent{
		Id:         record.Id,
		Title:      record.Title(),
		PersonName: record.PersonName,
		Location:   record.Location,
		FullDay:    record.FullDay,
		Start:      record.Start,
		End:        end,
		Color:      ColorOf(record.Location),
		Notes:      record.Notes,
		CreatedBy:  record.CreatedBy,
	}
}

// ClassifyFullDay decides full-day-ness for data that carries no explicit flag:
// true iff neither bound has a time-of-day component. An empty end counts as
// carrying none.
func ClassifyFullDay(start string, end string) bool {
	return isBareDate(start) && (strings.TrimSpace(end) == "" || isBareDate(end))
}

var bareDateLayouts = []string{DateLayout, "20060102"}

func isBareDate(value string) bool {
	value = strings.TrimSpace(value)
	for _, layout := range bareDateLayouts {
		if len(value) != len(layout) {
			continue
		}

		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}

	return false
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func combine(date time.Time, clock Clock) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour, clock.Minute, 0, 0, date.Location())
}

func sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
