package google

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calsync/internal/config"
	"calsync/internal/models"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService adapts internal DTOs to the Google Calendar API. Credentials
// arrive through SetToken, not per call; the calendar id is fixed per instance.
type CalendarService struct {
	oauthCfg   *oauth2.Config
	calendarID string
	limiter    *rate.Limiter

	mu      sync.RWMutex
	service *calendar.Service
}

func NewCalendarService(cfg config.GoogleConfig) *CalendarService {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     googleoauth.Endpoint,
	}

	var limiter *rate.Limiter
	if cfg.MaxQPS > 0 {
		// Client-side smoothing so a burst of deliveries does not hammer the
		// provider before the shared limiter trips.
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxQPS), cfg.MaxQPS)
	}

	return &CalendarService{
		oauthCfg:   oauthCfg,
		calendarID: cfg.CalendarID,
		limiter:    limiter,
	}
}

// AuthURL returns the consent URL for the OAuth flow handled outside this core.
func (s *CalendarService) AuthURL(state string) string {
	return s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *CalendarService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	return token, nil
}

// SetToken applies the bearer token and rebuilds the underlying service with a
// refreshing token source.
func (s *CalendarService) SetToken(ctx context.Context, token *oauth2.Token) error {
	src := s.oauthCfg.TokenSource(ctx, token)

	srv, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return fmt.Errorf("unable to create Calendar service: %w", err)
	}

	s.mu.Lock()
	s.service = srv
	s.mu.Unlock()
	return nil
}

func (s *CalendarService) svc() (*calendar.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.service == nil {
		return nil, fmt.Errorf("calendar service has no token applied")
	}
	return s.service, nil
}

func (s *CalendarService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *CalendarService) CreateEvent(ctx context.Context, payload models.EventPayload) (*models.CalendarEvent, error) {
	srv, err := s.svc()
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := srv.Events.Insert(s.calendarID, toProviderEvent(payload)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	return mapEvent(resp)
}

// UpdateEvent patches only the fields present in the payload.
func (s *CalendarService) UpdateEvent(ctx context.Context, payload models.EventPayload) (*models.CalendarEvent, error) {
	srv, err := s.svc()
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := srv.Events.Patch(s.calendarID, payload.ID, toProviderEvent(payload)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("patch event %s: %w", payload.ID, err)
	}

	return mapEvent(resp)
}

func (s *CalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	srv, err := s.svc()
	if err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := srv.Events.Delete(s.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func (s *CalendarService) GetEvent(ctx context.Context, eventID string) (*models.CalendarEvent, error) {
	srv, err := s.svc()
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := srv.Events.Get(s.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}

	return mapEvent(resp)
}

func (s *CalendarService) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	srv, err := s.svc()
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	call := srv.Events.List(s.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if !timeMin.IsZero() {
		call = call.TimeMin(timeMin.Format(time.RFC3339))
	}
	if !timeMax.IsZero() {
		call = call.TimeMax(timeMax.Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, err := mapEvent(item)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, nil
}
