// Package notification turns queued ticket confirmations into emails.
package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
)

// Email is what a Sender delivers.
type Email struct {
	To       string
	Subject  string
	HTMLBody string
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html><body>
<p>Hi {{.Ticket.UserName}},</p>
<p>Your ticket for <strong>{{.Ticket.EventTitle}}</strong> is confirmed.</p>
<p>When: {{.When}}<br>Where: {{.Ticket.Location}}</p>
{{if .Ticket.TeamName}}<p>Team: {{.Ticket.TeamName}} (code <code>{{.Ticket.TeamCode}}</code>)</p>{{end}}
<p>Show this code at the entrance:</p>
<p><img src="{{.QRImageURL}}" alt="Ticket QR code" width="250" height="250"></p>
<p>Ticket ID: <code>{{.Ticket.TicketID}}</code></p>
</body></html>`))

// Renderer builds ticket emails.
type Renderer struct {
	qrImageBaseURL string
}

// NewRenderer returns a Renderer that links QR images from qrImageBaseURL,
// to which the URL-escaped QR payload is appended.
func NewRenderer(qrImageBaseURL string) *Renderer {
	return &Renderer{qrImageBaseURL: qrImageBaseURL}
}

// Render produces the confirmation email for a ticket.
func (r *Renderer) Render(t model.TicketConfirmed) (Email, error) {
	payload := model.NewQRPayload(model.TicketID{EventID: t.EventID, UserID: t.UserID}).Encode()

	var body bytes.Buffer
	err := ticketTemplate.Execute(&body, struct {
		Ticket     model.TicketConfirmed
		When       string
		QRImageURL string
	}{
		Ticket:     t,
		When:       t.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST"),
		QRImageURL: r.qrImageBaseURL + url.QueryEscape(payload),
	})
	if err != nil {
		return Email{}, fmt.Errorf("render ticket email: %w", err)
	}

	return Email{
		To:       t.UserEmail,
		Subject:  "Your ticket: " + singleLine(t.EventTitle),
		HTMLBody: body.String(),
	}, nil
}

// singleLine collapses runs of whitespace, line breaks included, to one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
