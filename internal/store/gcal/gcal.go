// Package gcal implements the event store on Google Calendar, the service
// the business uses as its system of record. Reservations and closures map
// to two separate calendars. Authentication uses a previously issued OAuth
// token file; refreshing is the oauth2 token source's job.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"amaze/internal/models"
	"amaze/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Config carries the OAuth client and calendar mapping.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	// CalendarIDs maps each logical collection to a calendar id ("primary"
	// works for single-calendar deployments of the reservations collection).
	CalendarIDs map[store.Collection]string
	// Timeout bounds every remote call; defaults to 10s.
	Timeout time.Duration
}

// Store is the Google Calendar-backed EventStore.
type Store struct {
	svc       *calendar.Service
	source    oauth2.TokenSource
	calendars map[store.Collection]string
	timeout   time.Duration
	log       *zerolog.Logger
}

// New builds the adapter from a saved token file.
func New(ctx context.Context, cfg Config, logger *zerolog.Logger) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	tok, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load oauth token: %w", err)
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
	source := oc.TokenSource(ctx, tok)

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	return &Store{
		svc:       svc,
		source:    source,
		calendars: cfg.CalendarIDs,
		timeout:   cfg.Timeout,
		log:       logger,
	}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &tok, nil
}

func (s *Store) calendarID(col store.Collection) (string, error) {
	id, ok := s.calendars[col]
	if !ok || id == "" {
		return "", fmt.Errorf("no calendar configured for collection %q", col)
	}
	return id, nil
}

// ListEvents returns events starting in [from, to).
func (s *Store) ListEvents(ctx context.Context, col store.Collection, from, to time.Time) ([]store.Event, error) {
	calID, err := s.calendarID(col)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var items []*calendar.Event
	err = s.withAuthRetry(func() error {
		items = items[:0]
		call := s.svc.Events.List(calID).
			Context(ctx).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")
		return call.Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	})
	if err != nil {
		return nil, s.mapError("list", err)
	}

	events := make([]store.Event, 0, len(items))
	for _, item := range items {
		ev, err := fromCalendarEvent(item)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", item.Id).Msg("skipping unparseable calendar event")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Store) CreateEvent(ctx context.Context, col store.Collection, ev store.Event) (store.Event, error) {
	calID, err := s.calendarID(col)
	if err != nil {
		return store.Event{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var created *calendar.Event
	err = s.withAuthRetry(func() error {
		var callErr error
		created, callErr = s.svc.Events.Insert(calID, toCalendarEvent(ev)).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return store.Event{}, s.mapError("create", err)
	}
	out, err := fromCalendarEvent(created)
	if err != nil {
		return store.Event{}, fmt.Errorf("%w: created event unreadable: %v", models.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, col store.Collection, id string) (store.Event, error) {
	calID, err := s.calendarID(col)
	if err != nil {
		return store.Event{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var item *calendar.Event
	err = s.withAuthRetry(func() error {
		var callErr error
		item, callErr = s.svc.Events.Get(calID, id).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return store.Event{}, s.mapError("get", err)
	}
	return fromCalendarEvent(item)
}

func (s *Store) UpdateEvent(ctx context.Context, col store.Collection, ev store.Event) (store.Event, error) {
	calID, err := s.calendarID(col)
	if err != nil {
		return store.Event{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var updated *calendar.Event
	err = s.withAuthRetry(func() error {
		var callErr error
		updated, callErr = s.svc.Events.Update(calID, ev.ID, toCalendarEvent(ev)).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return store.Event{}, s.mapError("update", err)
	}
	return fromCalendarEvent(updated)
}

func (s *Store) DeleteEvent(ctx context.Context, col store.Collection, id string) error {
	calID, err := s.calendarID(col)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.withAuthRetry(func() error {
		return s.svc.Events.Delete(calID, id).Context(ctx).Do()
	})
	if err != nil {
		return s.mapError("delete", err)
	}
	return nil
}

// withAuthRetry runs the call and, on an auth failure, forces a token
// refresh and retries exactly once. This replaces the old catch-401-and-call-
// yourself pattern with a single bounded retry at the adapter boundary.
func (s *Store) withAuthRetry(call func() error) error {
	err := call()
	if !isAuthError(err) {
		return err
	}

	s.log.Warn().Msg("calendar auth expired, refreshing token and retrying once")
	if _, refreshErr := s.source.Token(); refreshErr != nil {
		return fmt.Errorf("token refresh: %w", refreshErr)
	}
	return call()
}

func isAuthError(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}

// mapError folds transport-level errors into the core taxonomy. Anything
// ambiguous becomes ErrStoreUnavailable; the caller must never read it as
// "no events".
func (s *Store) mapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone {
			return fmt.Errorf("calendar %s: %w", op, models.ErrNotFound)
		}
	}
	return fmt.Errorf("calendar %s: %w: %v", op, models.ErrStoreUnavailable, err)
}

func toCalendarEvent(ev store.Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		ColorId:     ev.ColorID,
	}
	if ev.AllDay {
		out.Start = &calendar.EventDateTime{Date: ev.Start.In(models.Taipei).Format(models.DateFormat)}
		out.End = &calendar.EventDateTime{Date: ev.End.In(models.Taipei).Format(models.DateFormat)}
	} else {
		out.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: "Asia/Taipei"}
		out.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: "Asia/Taipei"}
	}
	return out
}

func fromCalendarEvent(item *calendar.Event) (store.Event, error) {
	ev := store.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		ColorID:     item.ColorId,
	}

	switch {
	case item.Start == nil || item.End == nil:
		return store.Event{}, fmt.Errorf("event %s has no start/end", item.Id)
	case item.Start.Date != "":
		start, err := time.ParseInLocation(models.DateFormat, item.Start.Date, models.Taipei)
		if err != nil {
			return store.Event{}, fmt.Errorf("event %s start: %w", item.Id, err)
		}
		end, err := time.ParseInLocation(models.DateFormat, item.End.Date, models.Taipei)
		if err != nil {
			return store.Event{}, fmt.Errorf("event %s end: %w", item.Id, err)
		}
		ev.Start, ev.End, ev.AllDay = start, end, true
	default:
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return store.Event{}, fmt.Errorf("event %s start: %w", item.Id, err)
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return store.Event{}, fmt.Errorf("event %s end: %w", item.Id, err)
		}
		ev.Start, ev.End = start.In(models.Taipei), end.In(models.Taipei)
	}
	return ev, nil
}
