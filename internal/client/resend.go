package client

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

const longDate = "Monday, January 2, 2006"

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "client"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #0a0a0a; color: #f5f5f5;">
<h1 style="color: #d4a017;">Mentix Trading</h1>
<p>1-on-1 Coaching Session Confirmed</p>
<h2>Hello {{.ClientName}},</h2>
<p>Your coaching session has been confirmed! Here are the details:</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.Time}} UTC</p>
<p><strong>Duration:</strong> {{.Duration}} minutes</p>
<p><strong>Booking ID:</strong> {{.BookingID}}</p>
{{if .JoinURL}}<p><strong>Zoom Link:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>{{else}}<p>Your meeting link will follow in a separate email.</p>{{end}}
<p>If you need to reschedule or cancel, please contact us as soon as possible.</p>
<p style="color: #666; font-size: 12px;">&copy; {{.Year}} Mentix Trading. All rights reserved.</p>
</div>{{end}}
{{define "admin"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #d4a017;">New Booking</h1>
<p><strong>Client:</strong> {{.ClientName}}</p>
<p><strong>Email:</strong> {{.ClientEmail}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.Time}} UTC</p>
<p><strong>Duration:</strong> {{.Duration}} min</p>
{{if .JoinURL}}<p><a href="{{.JoinURL}}">Start Zoom Meeting</a></p>{{end}}
</div>{{end}}
{{define "reminder"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #0a0a0a; color: #f5f5f5;">
<h1 style="color: #d4a017;">Mentix Trading</h1>
<h2>Hello {{.ClientName}},</h2>
<p>Your coaching session starts soon.</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.Time}} UTC</p>
{{if .JoinURL}}<p><a href="{{.JoinURL}}">Join Zoom Meeting</a></p>{{end}}
</div>{{end}}
`))

// ResendClient sends transactional email through the Resend API.
type ResendClient struct {
	cfg  config.ResendConfig
	http *http.Client
}

// NewResendClient returns nil without an API key.
func NewResendClient(cfg config.ResendConfig, hc *http.Client) *ResendClient {
	if cfg.APIKey == "" {
		return nil
	}
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &ResendClient{cfg: cfg, http: hc}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type emailView struct {
	BookingID   string
	ClientName  string
	ClientEmail string
	Date        string
	Time        string
	Duration    int
	JoinURL     string
	Year        int
}

func newEmailView(details models.BookingDetails) emailView {
	start := details.StartsAt.UTC()
	return emailView{
		BookingID:   details.BookingID,
		ClientName:  details.ClientName,
		ClientEmail: details.ClientEmail,
		Date:        start.Format(longDate),
		Time:        start.Format("15:04"),
		Duration:    details.Duration,
		JoinURL:     details.JoinURL,
		Year:        time.Now().Year(),
	}
}

// SendBookingConfirmation emails the client and then the administrator.
func (c *ResendClient) SendBookingConfirmation(ctx context.Context, adminEmail string, details models.BookingDetails) error {
	if c == nil {
		return ErrNotConfigured
	}
	view := newEmailView(details)

	if err := c.send(ctx, details.ClientEmail, "Coaching Session Confirmed - "+view.Date, "client", view); err != nil {
		return err
	}
	if adminEmail == "" {
		return nil
	}
	return c.send(ctx, adminEmail, fmt.Sprintf("New Booking: %s - %s", view.ClientName, view.Date), "admin", view)
}

// SendSessionReminder emails the client ahead of the session.
func (c *ResendClient) SendSessionReminder(ctx context.Context, details models.BookingDetails) error {
	if c == nil {
		return ErrNotConfigured
	}
	view := newEmailView(details)
	return c.send(ctx, details.ClientEmail, "Reminder: Coaching Session at "+view.Time+" UTC", "reminder", view)
}

func (c *ResendClient) send(ctx context.Context, to, subject, tmpl string, view emailView) error {
	var html bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&html, tmpl, view); err != nil {
		return fmt.Errorf("render %s email: %w", tmpl, err)
	}
	return do(ctx, c.http, request{
		service: "resend",
		method:  http.MethodPost,
		url:     strings.TrimRight(c.cfg.APIURL, "/") + "/emails",
		headers: map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		body: resendEmail{
			From:    c.cfg.FromEmail,
			To:      []string{to},
			Subject: subject,
			HTML:    html.String(),
		},
	}, nil)
}
