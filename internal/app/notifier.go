package app

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

type BookingEmail struct {
	BookingID     string
	PropertyTitle string
	CheckIn       time.Time
	CheckOut      time.Time
	Nights        int
	Total         int64
	GuestName     string
	To            string
}

// Notifier sends booking emails in the background. Delivery failures are
// logged and counted; they never reach the caller.
type Notifier struct {
	sender  domain.EmailSender
	sem     *semaphore.Weighted
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewNotifier(sender domain.EmailSender, workers int, timeout time.Duration) *Notifier {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Notifier{sender: sender, sem: semaphore.NewWeighted(int64(workers)), timeout: timeout}
}

// BookingCreated queues the confirmation email and returns immediately.
func (n *Notifier) BookingCreated(e BookingEmail) {
	if n == nil || n.sender == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.sem.Acquire(ctx, 1); err != nil {
			observability.ObserveEmail("dropped")
			log.Warn().Str("booking_id", e.BookingID).Err(err).Msg("email dispatch dropped")
			return
		}
		defer n.sem.Release(1)

		msg, err := RenderBookingConfirmation(e)
		if err != nil {
			observability.ObserveEmail("render_error")
			log.Error().Str("booking_id", e.BookingID).Err(err).Msg("render confirmation email failed")
			return
		}
		if err := n.sender.Send(ctx, msg); err != nil {
			observability.ObserveEmail("failed")
			log.Warn().Str("booking_id", e.BookingID).Err(err).Msg("confirmation email failed")
			return
		}
		observability.ObserveEmail("sent")
		log.Info().Str("booking_id", e.BookingID).Msg("confirmation email sent")
	}()
}

// Wait blocks until queued emails finish.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h1>Your booking is received</h1>
<p>Hi {{.GuestName}},</p>
<p>Thanks for booking <strong>{{.PropertyTitle}}</strong>.</p>
<table>
<tr><td>Booking</td><td>#{{.BookingID}}</td></tr>
<tr><td>Check-in</td><td>{{.CheckIn}}</td></tr>
<tr><td>Check-out</td><td>{{.CheckOut}}</td></tr>
<tr><td>Nights</td><td>{{.Nights}}</td></tr>
<tr><td>Total</td><td>${{.Total}}</td></tr>
</table>
<p>Your stay is confirmed once payment completes.</p>
</body></html>`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(`Hi {{.GuestName}},

Thanks for booking {{.PropertyTitle}}.

Booking:   #{{.BookingID}}
Check-in:  {{.CheckIn}}
Check-out: {{.CheckOut}}
Nights:    {{.Nights}}
Total:     ${{.Total}}

Your stay is confirmed once payment completes.
`))

func RenderBookingConfirmation(e BookingEmail) (domain.EmailMessage, error) {
	data := struct {
		BookingID, PropertyTitle, GuestName string
		CheckIn, CheckOut                   string
		Nights                              int
		Total                               int64
	}{
		BookingID:     e.BookingID,
		PropertyTitle: e.PropertyTitle,
		GuestName:     e.GuestName,
		CheckIn:       e.CheckIn.Format("Mon, Jan 2 2006"),
		CheckOut:      e.CheckOut.Format("Mon, Jan 2 2006"),
		Nights:        e.Nights,
		Total:         e.Total,
	}
	var html, text bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return domain.EmailMessage{}, err
	}
	if err := confirmationText.Execute(&text, data); err != nil {
		return domain.EmailMessage{}, err
	}
	return domain.EmailMessage{
		To:      e.To,
		ToName:  e.GuestName,
		Subject: fmt.Sprintf("Booking Confirmation #%s", e.BookingID),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
