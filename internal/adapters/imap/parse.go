package imap

import (
	"errors"
	"fmt"
	"io"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
	"github.com/seido-app/courier/internal/ports"
)

// parseMessage converts one raw IMAP message into transport-neutral form.
// MIME decoding failures degrade to envelope-only data so a single malformed
// body never fails the batch.
func parseMessage(msg *goimap.Message, section *goimap.BodySectionName, host string) ports.FetchedMessage {
	out := ports.FetchedMessage{
		UID:        msg.Uid,
		ReceivedAt: msg.InternalDate,
	}
	if env := msg.Envelope; env != nil {
		out.MessageID = env.MessageId
		out.Subject = env.Subject
		if len(env.From) > 0 {
			out.FromAddress = env.From[0].Address()
		}
		for _, addr := range env.To {
			out.ToAddresses = append(out.ToAddresses, addr.Address())
		}
		if out.ReceivedAt.IsZero() {
			out.ReceivedAt = env.Date
		}
	}
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = time.Now().UTC()
	}
	if out.MessageID == "" {
		// Deterministic fallback keeps replays dedupable.
		out.MessageID = fmt.Sprintf("<uid-%d@%s>", msg.Uid, host)
	}

	body := msg.GetBody(section)
	if body == nil {
		return out
	}
	reader, err := mail.CreateReader(body)
	if err != nil {
		return out
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}
		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			if contentType == "text/html" {
				if out.BodyHTML == "" {
					out.BodyHTML = string(data)
				}
			} else if out.BodyText == "" {
				out.BodyText = string(data)
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			contentType, _, _ := header.ContentType()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			out.Attachments = append(out.Attachments, ports.FetchedAttachment{
				Filename:    filename,
				ContentType: contentType,
				Data:        data,
			})
		}
	}
	return out
}
