package service

import (
	"context"
	"fmt"
	"time"

	"fairmeet/core/config"
	"fairmeet/modules/calendar/entity"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

// GoogleCalendar is the slice of the Google OAuth and Calendar APIs the service uses.
// Calls that may refresh the access token return the token that is current afterwards.
type GoogleCalendar interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	PrimaryEmail(ctx context.Context, token *oauth2.Token) (string, *oauth2.Token, error)
	FreeBusy(ctx context.Context, token *oauth2.Token, from, to time.Time) ([]entity.TimeRange, *oauth2.Token, error)
}

type googleCalendar struct {
	oauthConfig *oauth2.Config
}

func NewGoogleCalendar(cfg config.GoogleAPIConfig) GoogleCalendar {
	return &googleCalendar{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *googleCalendar) AuthCodeURL(state string) string {
	return g.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *googleCalendar) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.oauthConfig.Exchange(ctx, code)
}

func (g *googleCalendar) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, oauth2.TokenSource, error) {
	ts := g.oauthConfig.TokenSource(ctx, token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, ts, nil
}

func (g *googleCalendar) PrimaryEmail(ctx context.Context, token *oauth2.Token) (string, *oauth2.Token, error) {
	svc, ts, err := g.service(ctx, token)
	if err != nil {
		return "", nil, err
	}
	entry, err := svc.CalendarList.Get(primaryCalendarID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("get primary calendar: %w", err)
	}
	current, err := ts.Token()
	if err != nil {
		return "", nil, err
	}
	return entry.Id, current, nil
}

func (g *googleCalendar) FreeBusy(ctx context.Context, token *oauth2.Token, from, to time.Time) ([]entity.TimeRange, *oauth2.Token, error) {
	svc, ts, err := g.service(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("query free/busy: %w", err)
	}

	cal, ok := resp.Calendars[primaryCalendarID]
	if !ok {
		return nil, nil, fmt.Errorf("free/busy response missing %s calendar", primaryCalendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, nil, fmt.Errorf("free/busy error: %s", cal.Errors[0].Reason)
	}

	busy := make([]entity.TimeRange, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("parse busy start %q: %w", p.Start, err)
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, nil, fmt.Errorf("parse busy end %q: %w", p.End, err)
		}
		if end.After(start) {
			busy = append(busy, entity.TimeRange{Start: start.UTC(), End: end.UTC()})
		}
	}

	current, err := ts.Token()
	if err != nil {
		return nil, nil, err
	}
	return busy, current, nil
}
