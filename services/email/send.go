package email

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

// Send composes an outgoing message and runs it through the same
// ingestion path as inbound mail, so a reply lands in the conversation
// it answers.
func (s *emailService) Send(ctx context.Context, userID string, request dto.SendEmailRequest) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailService.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if len(request.To) == 0 {
		return nil, ErrRecipientsMissing
	}
	if request.BodyText == "" && request.BodyHTML == "" {
		return nil, ErrEmptyEmailBody
	}

	from, err := ValidateEmailAddress(request.From)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	recipients := make([]string, 0, len(request.To))
	for _, to := range request.To {
		clean, err := ValidateEmailAddress(to)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		recipients = append(recipients, clean)
	}

	cc := make([]string, 0, len(request.Cc))
	for _, addr := range request.Cc {
		clean, err := ValidateEmailAddress(addr)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		cc = append(cc, clean)
	}

	outgoing := &interfaces.IncomingEmail{
		MessageID:   utils.GenerateMessageID(s.sendDomain, request.Subject),
		Subject:     request.Subject,
		FromAddress: from,
		ToAddresses: recipients,
		CcAddresses: cc,
		BodyText:    request.BodyText,
		BodyHTML:    request.BodyHTML,
		ReceivedAt:  utils.Now(),
		Folder:      models.FolderSent,
	}

	// Threading headers come from the replied-to member
	if request.ReplyToEmailID != "" {
		parent, err := s.getOwned(ctx, userID, request.ReplyToEmailID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}

		outgoing.InReplyTo = parent.MessageID
		outgoing.References = append(append([]string{}, parent.References...), parent.MessageID)
		if outgoing.Subject == "" {
			outgoing.Subject = "Re: " + parent.Subject
		}
	}

	sent, err := s.threading.Ingest(ctx, userID, outgoing)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return sent, nil
}
