package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	t.Parallel()

	canary := time.FixedZone("WEST", 3600)

	tests := []struct {
		name      string
		req       EntryRequest
		wantField string
		check     func(t *testing.T, input *EventInput)
	}{
		{
			name: "full day ignores times",
			req: EntryRequest{
				PersonName: "Maria", Location: " calp ", FullDay: true,
				StartDate: "2024-06-10", StartTime: "garbage",
			},
			check: func(t *testing.T, input *EventInput) {
				assert.Equal(t, LocationCALP, input.Location)
				assert.True(t, input.FullDay)
				assert.Nil(t, input.EndDate)
				assert.Nil(t, input.StartTime)
				assert.Equal(t, canary, input.StartDate.Location())
			},
		},
		{
			name: "timed with both clocks",
			req: EntryRequest{
				PersonName: "Luis", Location: "REMOTE", StartDate: "2024-06-10", EndDate: "2024-06-11",
				StartTime: "09:00", EndTime: "17:30", Notes: "  shift  ",
			},
			check: func(t *testing.T, input *EventInput) {
				require.NotNil(t, input.EndDate)
				assert.Equal(t, 11, input.EndDate.Day())
				assert.Equal(t, Clock{Hour: 9}, *input.StartTime)
				assert.Equal(t, Clock{Hour: 17, Minute: 30}, *input.EndTime)
				assert.Equal(t, "shift", input.Notes)
			},
		},
		{
			name: "missing end time stays nil",
			req:  EntryRequest{PersonName: "Luis", Location: "ORM", StartDate: "2024-06-10", StartTime: "09:00"},
			check: func(t *testing.T, input *EventInput) {
				assert.NotNil(t, input.StartTime)
				assert.Nil(t, input.EndTime)
			},
		},
		{
			name: "unknown place is passed through",
			req:  EntryRequest{PersonName: "Luis", Location: "moon", FullDay: true, StartDate: "2024-06-10"},
			check: func(t *testing.T, input *EventInput) {
				assert.Equal(t, Location("MOON"), input.Location)
			},
		},
		{
			name:      "missing start date",
			req:       EntryRequest{PersonName: "Maria", Location: "CALP", FullDay: true},
			wantField: "start_date",
		},
		{
			name:      "malformed end date",
			req:       EntryRequest{PersonName: "Maria", Location: "CALP", FullDay: true, StartDate: "2024-06-10", EndDate: "11/06"},
			wantField: "end_date",
		},
		{
			name:      "malformed start time",
			req:       EntryRequest{PersonName: "Maria", Location: "CALP", StartDate: "2024-06-10", StartTime: "9am"},
			wantField: "start_time",
		},
		{
			name:      "malformed end time",
			req:       EntryRequest{PersonName: "Maria", Location: "CALP", StartDate: "2024-06-10", StartTime: "09:00", EndTime: "25:00"},
			wantField: "end_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input, err := ParseEntry(tt.req, canary)

			if tt.wantField != "" {
				require.Error(t, err)

				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, InvalidFormat, verr.Kind)
				assert.Equal(t, tt.wantField, verr.Field)
				assert.Nil(t, input)

				return
			}

			require.NoError(t, err)
			tt.check(t, input)
		})
	}
}

func TestParseEntry_BlankNameFirst(t *testing.T) {
	t.Parallel()

	for _, req := range []EntryRequest{
		{PersonName: " ", Location: "MOON", FullDay: true, StartDate: "2024-06-10"},
		{PersonName: "", StartDate: ""},
		{PersonName: "\t", Location: "CALP", StartDate: "10/06/2024", StartTime: "9am", EndTime: "noon"},
	} {
		input, err := ParseEntry(req, time.UTC)
		require.ErrorIs(t, err, &ValidationError{Kind: MissingName, Field: "name_person"}, "%+v", req)
		assert.Nil(t, input)
	}
}

func TestValidateLocation(t *testing.T) {
	t.Parallel()

	for _, l := range Locations {
		assert.NoError(t, ValidateLocation(l))
	}

	err := ValidateLocation("MOON")
	require.ErrorIs(t, err, ErrInvalidLocation)
	assert.Equal(t, `place: unknown place "MOON"`, err.Error())

	require.ErrorIs(t, ValidateLocation(""), ErrInvalidLocation)
}

func TestValidationError_Is(t *testing.T) {
	t.Parallel()

	err := newValidationError(MissingTime, "end_time", "end time is required")

	assert.ErrorIs(t, err, ErrMissingTime)
	assert.ErrorIs(t, err, &ValidationError{Kind: MissingTime, Field: "end_time"})
	assert.NotErrorIs(t, err, &ValidationError{Kind: MissingTime, Field: "start_time"})
	assert.NotErrorIs(t, err, ErrMissingName)
	assert.NotErrorIs(t, err, errors.New("end_time: end time is required"))
}
