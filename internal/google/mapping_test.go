package google

import (
	"testing"
	"time"

	"calsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func TestMapEvent(t *testing.T) {
	base := func() *calendar.Event {
		return &calendar.Event{
			Id:      "ev-1",
			Summary: "Standup",
			Status:  "confirmed",
			Start:   &calendar.EventDateTime{DateTime: "2026-09-01T10:00:00Z", TimeZone: "Europe/Berlin"},
			End:     &calendar.EventDateTime{DateTime: "2026-09-01T10:30:00Z", TimeZone: "Europe/Berlin"},
			Created: "2026-08-30T09:00:00Z",
			Updated: "2026-08-31T09:00:00Z",
		}
	}

	t.Run("Valid", func(t *testing.T) {
		got, err := mapEvent(base())
		require.NoError(t, err)
		assert.Equal(t, "ev-1", got.ID)
		assert.Equal(t, "Standup", got.Title)
		assert.Equal(t, models.EventStatusConfirmed, got.Status)
		assert.Equal(t, "Europe/Berlin", got.Start.TimeZone)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), got.Start.DateTime.UTC())
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("DefaultStatus", func(t *testing.T) {
		ev := base()
		ev.Status = ""
		got, err := mapEvent(ev)
		require.NoError(t, err)
		assert.Equal(t, models.EventStatusConfirmed, got.Status)
	})

	t.Run("DefaultTimezone", func(t *testing.T) {
		ev := base()
		ev.Start.TimeZone = ""
		ev.End.TimeZone = ""
		got, err := mapEvent(ev)
		require.NoError(t, err)
		assert.Equal(t, "UTC", got.Start.TimeZone)
		assert.Equal(t, "UTC", got.End.TimeZone)
	})

	t.Run("MissingID", func(t *testing.T) {
		ev := base()
		ev.Id = ""
		_, err := mapEvent(ev)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("MissingStart", func(t *testing.T) {
		ev := base()
		ev.Start = nil
		_, err := mapEvent(ev)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("MissingEnd", func(t *testing.T) {
		ev := base()
		ev.End = nil
		_, err := mapEvent(ev)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("AllDayDate", func(t *testing.T) {
		ev := base()
		ev.Start = &calendar.EventDateTime{Date: "2026-09-02"}
		got, err := mapEvent(ev)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), got.Start.DateTime)
		assert.Equal(t, "UTC", got.Start.TimeZone)
	})

	t.Run("EmptyTime", func(t *testing.T) {
		ev := base()
		ev.Start = &calendar.EventDateTime{}
		_, err := mapEvent(ev)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("UnparseableTime", func(t *testing.T) {
		ev := base()
		ev.Start.DateTime = "yesterday"
		_, err := mapEvent(ev)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestToProviderEvent(t *testing.T) {
	start := models.EventDateTime{DateTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	end := models.EventDateTime{DateTime: time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC), TimeZone: "Europe/Berlin"}

	ev := toProviderEvent(models.EventPayload{
		Title:       "Planning",
		Description: "Q4",
		Start:       &start,
		End:         &end,
	})

	assert.Equal(t, "Planning", ev.Summary)
	require.NotNil(t, ev.Start)
	assert.Equal(t, "UTC", ev.Start.TimeZone, "empty timezone defaults to UTC on the wire")
	assert.Equal(t, "Europe/Berlin", ev.End.TimeZone)
	assert.Equal(t, "2026-09-01T10:00:00Z", ev.Start.DateTime)
}

func TestToProviderEventPartial(t *testing.T) {
	// Update payloads may carry only the id; no Start/End on the wire then.
	ev := toProviderEvent(models.EventPayload{ID: "ev-1", Title: "Renamed"})
	assert.Nil(t, ev.Start)
	assert.Nil(t, ev.End)
	assert.Equal(t, "Renamed", ev.Summary)
}
