package google

import (
	"errors"
	"fmt"
	"time"

	"calsync/internal/models"

	"google.golang.org/api/calendar/v3"
)

// ErrInvalidResponse marks a provider response that violates the adapter
// contract (missing id, start or end). Never retried.
var ErrInvalidResponse = errors.New("invalid provider response")

func toProviderEvent(payload models.EventPayload) *calendar.Event {
	ev := &calendar.Event{
		Summary:     payload.Title,
		Description: payload.Description,
	}
	if payload.Start != nil {
		ev.Start = toProviderDateTime(*payload.Start)
	}
	if payload.End != nil {
		ev.End = toProviderDateTime(*payload.End)
	}
	return ev
}

func toProviderDateTime(dt models.EventDateTime) *calendar.EventDateTime {
	tz := dt.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	return &calendar.EventDateTime{
		DateTime: dt.DateTime.Format(time.RFC3339),
		TimeZone: tz,
	}
}

// mapEvent normalizes a provider event. Missing id/start/end is a contract
// violation; absent status defaults to confirmed, absent timezone to UTC.
func mapEvent(ev *calendar.Event) (*models.CalendarEvent, error) {
	if ev == nil || ev.Id == "" || ev.Start == nil || ev.End == nil {
		return nil, fmt.Errorf("%w: missing id, start or end", ErrInvalidResponse)
	}

	start, err := mapDateTime(ev.Start)
	if err != nil {
		return nil, err
	}
	end, err := mapDateTime(ev.End)
	if err != nil {
		return nil, err
	}

	status := models.EventStatus(ev.Status)
	if status == "" {
		status = models.EventStatusConfirmed
	}

	mapped := &models.CalendarEvent{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       start,
		End:         end,
		Status:      status,
	}

	// Created/Updated are informational; a parse failure leaves them zero.
	if t, err := time.Parse(time.RFC3339, ev.Created); err == nil {
		mapped.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, ev.Updated); err == nil {
		mapped.UpdatedAt = t
	}

	return mapped, nil
}

func mapDateTime(dt *calendar.EventDateTime) (models.EventDateTime, error) {
	tz := dt.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	raw := dt.DateTime
	layout := time.RFC3339
	if raw == "" {
		// All-day events carry only a date
		raw = dt.Date
		layout = "2006-01-02"
	}
	if raw == "" {
		return models.EventDateTime{}, fmt.Errorf("%w: empty event time", ErrInvalidResponse)
	}

	parsed, err := time.Parse(layout, raw)
	if err != nil {
		return models.EventDateTime{}, fmt.Errorf("%w: bad event time %q", ErrInvalidResponse, raw)
	}

	return models.EventDateTime{DateTime: parsed, TimeZone: tz}, nil
}
