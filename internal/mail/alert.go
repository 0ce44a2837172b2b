package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/internal/render"
	"github.com/gofiber/fiber/v2"
)

// SecurityAlertNotifier mails high severity audit events to the operators.
type SecurityAlertNotifier struct {
	sender     MailSender
	recipients []string
	auditURL   string
}

func describeUser(u *ocsf.User) string {
	if u == nil {
		return ""
	}
	if u.Name == "" {
		return strconv.FormatUint(uint64(u.UID), 10)
	}
	return fmt.Sprintf("%s (%d)", u.Name, u.UID)
}

func (n *SecurityAlertNotifier) NotifySecurityEvent(ctx context.Context, event *ocsf.Event) error {
	if len(n.recipients) == 0 {
		return nil
	}
	vars := fiber.Map{
		"typeName":     event.TypeName,
		"severity":     event.Severity,
		"status":       event.Status,
		"statusDetail": event.StatusDetail,
		"message":      event.Message,
		"time":         event.Time.UTC().Format(time.RFC3339),
		"eventUID":     event.Metadata.UID,
		"auditURL":     n.auditURL,
	}
	if event.Actor != nil {
		vars["actor"] = describeUser(&event.Actor.User)
	}
	if event.User != nil {
		vars["target"] = describeUser(event.User)
	} else if event.Resource != nil {
		vars["target"] = event.Resource.Type + " " + event.Resource.UID
	}
	if event.SrcEndpoint != nil {
		vars["sourceIP"] = event.SrcEndpoint.IP
	}

	body, err := render.RenderHTML("mail/security-alert", vars)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.sender.Send(&Message{
		To:      n.recipients,
		Subject: fmt.Sprintf("[%s] %s", event.Severity, event.TypeName),
		Body:    body,
		IsHTML:  true,
	})
}

// NewSecurityAlertNotifier returns a notifier mailing recipients. auditURL, when
// set, is linked from the mail body.
func NewSecurityAlertNotifier(sender MailSender, recipients []string, auditURL string) *SecurityAlertNotifier {
	return &SecurityAlertNotifier{
		sender:     sender,
		recipients: recipients,
		auditURL:   auditURL,
	}
}
