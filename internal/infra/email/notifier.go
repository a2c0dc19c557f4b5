package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"travel_reminder_bot/internal/domain/reminder"
)

// SMTPNotifier delivers reminder emails over plain SMTP. It implements the
// reminder.Notifier interface; the engine only ever looks at the returned
// error, never at the message itself.
type SMTPNotifier struct {
	host string
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		host: host,
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

var kindSubjects = map[reminder.Kind]string{
	reminder.KindTourDeparture: "Tour departure",
	reminder.KindCruiseSailing: "Cruise sailing",
	reminder.KindTourReturn:    "Tour return",
	reminder.KindTicket:        "Flight",
}

// Send builds and delivers one reminder message. net/smtp has no context
// support, so cancellation is only honored between messages.
func (n *SMTPNotifier) Send(ctx context.Context, c reminder.Candidate, daysUntil int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	subjectKind, ok := kindSubjects[c.Kind]
	if !ok {
		subjectKind = "Event"
	}
	subject := fmt.Sprintf("Reminder: %s %q %s", subjectKind, c.DisplayLabel, DueLabel(daysUntil))
	messageID := fmt.Sprintf("<%d.%s.%d@travel-reminders>", time.Now().UnixNano(), c.Kind, c.EntityID)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", c.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Message-ID: %s\r\n", messageID)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s %q is due %s (%s).\r\n",
		subjectKind, c.DisplayLabel, DueLabel(daysUntil), c.TargetDate.Format("2006-01-02"))
	msg.WriteString("Please check the booking and contact the customer if anything is outstanding.\r\n")

	if err := smtp.SendMail(n.addr, n.auth, n.from, []string{c.RecipientEmail}, []byte(msg.String())); err != nil {
		return "", fmt.Errorf("failed to send reminder to %s: %w", c.RecipientEmail, err)
	}
	return messageID, nil
}

// DueLabel renders a days-until value for humans. The exact-day case must
// read differently from the "in N days" case.
func DueLabel(daysUntil int) string {
	switch daysUntil {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", daysUntil)
	}
}
