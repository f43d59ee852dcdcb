package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ValidationKind string

const (
	MissingName     ValidationKind = "MissingName"
	MissingTime     ValidationKind = "MissingTime"
	EndBeforeStart  ValidationKind = "EndBeforeStart"
	InvalidLocation ValidationKind = "InvalidLocation"
	InvalidFormat   ValidationKind = "InvalidFormat"
)

// ValidationError names the offending form field so callers can highlight it.
type ValidationError struct {
	Kind    ValidationKind `json:"kind"`
	Field   string         `json:"field"`
	Message string         `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}

	return other.Kind == e.Kind && (other.Field == "" || other.Field == e.Field)
}

var (
	ErrMissingName     = &ValidationError{Kind: MissingName}
	ErrMissingTime     = &ValidationError{Kind: MissingTime}
	ErrEndBeforeStart  = &ValidationError{Kind: EndBeforeStart}
	ErrInvalidLocation = &ValidationError{Kind: InvalidLocation}
)

func newValidationError(kind ValidationKind, field string, message string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: message}
}

func ValidateLocation(location Location) error {
	if !location.Valid() {
		return newValidationError(InvalidLocation, "place", fmt.Sprintf("unknown place %q", location))
	}

	return nil
}

// EntryRequest carries the add-entry form fields as posted.
type EntryRequest struct {
	PersonName string `json:"name_person"`
	Location   string `json:"place"`
	FullDay    bool   `json:"full_day"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ParseEntry turns the posted strings into typed input. Dates are read in loc.
// A blank name is reported before any other field. Missing times are left nil
// so the normalizer reports them.
func ParseEntry(req EntryRequest, loc *time.Location) (*EventInput, error) {
	if strings.TrimSpace(req.PersonName) == "" {
		return nil, newValidationError(MissingName, "name_person", "person's name is required")
	}

	location, _ := ParseLocation(req.Location)

	input := &EventInput{
		PersonName: req.PersonName,
		Location:   location,
		FullDay:    req.FullDay,
		Notes:      strings.TrimSpace(req.Notes),
	}

	if strings.TrimSpace(req.StartDate) == "" {
		return nil, newValidationError(InvalidFormat, "start_date", "start date is required")
	}

	start, err := time.ParseInLocation(DateLayout, strings.TrimSpace(req.StartDate), loc)
	if err != nil {
		return nil, newValidationError(InvalidFormat, "start_date", "start date must be YYYY-MM-DD")
	}

	input.StartDate = start

	if strings.TrimSpace(req.EndDate) != "" {
		end, err := time.ParseInLocation(DateLayout, strings.TrimSpace(req.EndDate), loc)
		if err != nil {
			return nil, newValidationError(InvalidFormat, "end_date", "end date must be YYYY-MM-DD")
		}

		input.EndDate = &end
	}

	if req.FullDay {
		return input, nil
	}

	if strings.TrimSpace(req.StartTime) != "" {
		clock, err := ParseClock(req.StartTime)
		if err != nil {
			return nil, newValidationError(InvalidFormat, "start_time", "start time must be HH:MM")
		}

		input.StartTime = &clock
	}

	if strings.TrimSpace(req.EndTime) != "" {
		clock, err := ParseClock(req.EndTime)
		if err != nil {
			return nil, newValidationError(InvalidFormat, "end_time", "end time must be HH:MM")
		}

		input.EndTime = &clock
	}

	return input, nil
}
