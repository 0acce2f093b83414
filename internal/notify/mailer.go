package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends messages over SMTP. Messages without a recipient are
// dropped silently.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host string, port int, user, pass string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   user,
	}
}

func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Title)
	gm.SetBody("text/html", renderHTML(msg))

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func renderHTML(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(msg.Body))
	if acts := msg.Actions(); len(acts) > 0 {
		fmt.Fprintf(&b, "<p>Open VitalRite to mark this dose as %s.</p>",
			html.EscapeString(strings.Join(acts, " or ")))
	}
	return b.String()
}
