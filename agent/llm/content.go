package llm

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// MessageText narrows a model response to plain text. Providers return
// either a single content string or an ordered list of typed parts;
// this is the one place that difference is handled. Non-text parts are
// logged and skipped. ok is false when no text exists at all.
func MessageText(msg *schema.Message) (text string, ok bool) {
	if msg == nil {
		return "", false
	}

	if len(msg.MultiContent) > 0 {
		var b strings.Builder
		for _, part := range msg.MultiContent {
			if part.Type != schema.ChatMessagePartTypeText {
				log.Debug().Str("part_type", string(part.Type)).Msg("skipping non-text content part")
				continue
			}
			b.WriteString(part.Text)
		}
		if b.Len() == 0 {
			return "", false
		}
		return b.String(), true
	}

	if strings.TrimSpace(msg.Content) == "" {
		return "", false
	}
	return msg.Content, true
}
