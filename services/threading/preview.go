package threading

import (
	"context"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// Preview projects the most recent members into collapsed-view
// snippets, newest first. It reads and never writes.
func (s *threadingService) Preview(ctx context.Context, conversationID string) ([]models.PreviewMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.Preview")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagConversation(span, conversationID)

	emails, err := s.repositories.EmailRepository.ListRecentByConversation(ctx, conversationID, s.previewLimit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	previews := make([]models.PreviewMessage, 0, len(emails))
	for _, email := range emails {
		previews = append(previews, models.PreviewMessage{
			EmailID:     email.ID,
			FromAddress: email.FromAddress,
			FromName:    email.FromName,
			Snippet:     makeSnippet(email.BodyText, email.BodyHTML, s.snippetLength),
			ReceivedAt:  email.ReceivedAt,
			IsRead:      email.IsRead,
		})
	}

	return previews, nil
}

// makeSnippet prefers the text body and falls back to stripped HTML.
// The cut lands on a word boundary so a snippet never ends mid-word.
func makeSnippet(bodyText, bodyHTML string, limit int) string {
	text := strings.TrimSpace(bodyText)
	if text == "" && bodyHTML != "" {
		text = htmlToText(bodyHTML)
	}
	text = collapseWhitespace(text)

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := limit
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		// A single token longer than the limit gets cut hard
		cut = limit
	}

	return strings.TrimRight(string(runes[:cut]), " ")
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, head").Remove()
	return doc.Text()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
