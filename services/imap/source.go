package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/customeros/mailsherpa/mailvalidate"
	go_imap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

// IMAPSource fetches mail over IMAP and normalizes it into
// interfaces.IncomingEmail records.
type IMAPSource struct {
	log logger.Logger
}

func NewIMAPSource(log logger.Logger) interfaces.EmailSource {
	return &IMAPSource{
		log: log,
	}
}

func (s *IMAPSource) FetchNew(ctx context.Context, account interfaces.MailAccount, folder string, sinceUID uint32) ([]*interfaces.IncomingEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSource.FetchNew")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder", folder)
	span.SetTag("since.uid", sinceUID)

	c, err := s.connect(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select(folder, true)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	if mbox.Messages == 0 || mbox.UidNext <= sinceUID+1 {
		return nil, nil
	}

	seqSet := new(go_imap.SeqSet)
	seqSet.AddRange(sinceUID+1, 0)

	items := []go_imap.FetchItem{
		go_imap.FetchEnvelope,
		go_imap.FetchFlags,
		go_imap.FetchUid,
		"BODY.PEEK[]",
	}

	messages := make(chan *go_imap.Message, 64)
	done := make(chan error, 1)

	c.Timeout = fetchTimeout
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var emails []*interfaces.IncomingEmail
	for msg := range messages {
		if msg.Uid <= sinceUID {
			// Servers return the last message when the range is empty.
			continue
		}
		email := s.normalizeMessage(msg, folder)
		if email == nil {
			s.log.Warnf("skipping unparseable message uid=%d folder=%s", msg.Uid, folder)
			continue
		}
		emails = append(emails, email)
	}
	c.Timeout = 0

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("IMAP fetch error: %w", err)
	}

	span.LogKV("result.count", len(emails))
	return emails, nil
}

// normalizeMessage converts a raw IMAP message into an IncomingEmail.
// Returns nil when the message carries neither an envelope nor a body.
func (s *IMAPSource) normalizeMessage(msg *go_imap.Message, folder string) *interfaces.IncomingEmail {
	email := &interfaces.IncomingEmail{
		UID:    msg.Uid,
		Folder: folder,
	}

	applyEnvelope(email, msg.Envelope)

	raw := extractFullMessage(msg)
	if len(raw) > 0 {
		applyContent(email, raw)
	}

	if email.MessageID == "" && email.FromAddress == "" && email.Subject == "" && len(raw) == 0 {
		return nil
	}
	return email
}

func applyEnvelope(email *interfaces.IncomingEmail, envelope *go_imap.Envelope) {
	if envelope == nil {
		return
	}

	if !envelope.Date.IsZero() {
		email.ReceivedAt = envelope.Date
	}
	email.Subject = envelope.Subject
	email.MessageID = utils.NormalizeMessageID(envelope.MessageId)

	// In-Reply-To can carry several space separated ids.
	inReplyTo := utils.SplitMessageIDList(envelope.InReplyTo)
	if len(inReplyTo) > 0 {
		email.InReplyTo = inReplyTo[0]
	}

	if len(envelope.From) > 0 {
		sender := envelope.From[0]
		validation := mailvalidate.ValidateEmailSyntax(sender.Address())
		if validation.IsValid {
			email.FromAddress = validation.CleanEmail
		}
	}

	email.ToAddresses = normalizeAddresses(envelope.To)
	email.CcAddresses = normalizeAddresses(envelope.Cc)
}

func normalizeAddresses(addresses []*go_imap.Address) []string {
	if len(addresses) == 0 {
		return nil
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if addr.MailboxName == "" || addr.HostName == "" {
			continue
		}
		validation := mailvalidate.ValidateEmailSyntax(addr.Address())
		if validation.IsValid {
			result = append(result, validation.CleanEmail)
		}
	}
	return result
}

func extractFullMessage(msg *go_imap.Message) []byte {
	for section, literal := range msg.Body {
		if section.Peek {
			continue
		}
		if len(section.Path) == 0 && section.Specifier == go_imap.EntireSpecifier {
			data, err := io.ReadAll(literal)
			if err == nil {
				return data
			}
		}
	}
	return nil
}

// applyContent parses the raw RFC 822 message and fills in bodies,
// references, headers and attachments.
func applyContent(email *interfaces.IncomingEmail, raw []byte) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return
	}

	email.BodyText = envelope.Text
	email.BodyHTML = envelope.HTML

	headers := make(map[string]interface{})
	for _, key := range envelope.GetHeaderKeys() {
		values := envelope.GetHeaderValues(key)
		if len(values) > 0 {
			headers[key] = values
		}
	}
	email.RawHeaders = headers

	email.References = utils.SplitMessageIDList(envelope.GetHeader("References"))

	// The header variant wins over the envelope when both are present,
	// envelopes truncate long reference chains.
	if inReplyTo := utils.SplitMessageIDList(envelope.GetHeader("In-Reply-To")); len(inReplyTo) > 0 {
		email.InReplyTo = inReplyTo[0]
	}
	if messageID := utils.NormalizeMessageID(envelope.GetHeader("Message-ID")); messageID != "" {
		email.MessageID = messageID
	}

	for _, attachment := range envelope.Attachments {
		email.Attachments = append(email.Attachments, interfaces.IncomingAttachment{
			Filename:    attachment.FileName,
			ContentType: attachment.ContentType,
			Data:        attachment.Content,
		})
	}
	for _, inline := range envelope.Inlines {
		email.Attachments = append(email.Attachments, interfaces.IncomingAttachment{
			Filename:    inline.FileName,
			ContentType: inline.ContentType,
			IsInline:    true,
			ContentID:   inline.ContentID,
			Data:        inline.Content,
		})
	}
}
