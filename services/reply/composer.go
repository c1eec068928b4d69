package reply

import (
	"strings"
	"unicode/utf8"

	"github.com/upb/line-llm-relay/services/routing"
)

// DefaultExcerptLimit is the number of runes of a raw error shown to users
const DefaultExcerptLimit = 80

// Stable user-facing notices. None of them embeds upstream error text.
const (
	NoticeRateLimited  = "目前 AI 服務使用量已達上限，請稍後再試。"
	NoticeUnauthorized = "AI 服務設定有誤，請聯絡管理員。"
	NoticeNotFound     = "目前設定的 AI 模型暫時無法使用，請聯絡管理員。"
	NoticeGeneric      = "抱歉，連線異常，請稍後再試。"
)

// Composer turns a FallbackResult into the text sent back to the user
type Composer struct {
	excerptLimit int
}

// NewComposer creates a Composer. A non-positive limit uses DefaultExcerptLimit.
func NewComposer(excerptLimit int) *Composer {
	if excerptLimit <= 0 {
		excerptLimit = DefaultExcerptLimit
	}
	return &Composer{excerptLimit: excerptLimit}
}

// Compose renders the reply. The result is never empty.
func (c *Composer) Compose(result routing.FallbackResult) string {
	if result.IsAnswered() {
		if strings.TrimSpace(result.Text) == "" {
			return NoticeGeneric
		}
		return result.Text
	}

	switch result.Kind {
	case routing.KindRateLimited:
		return NoticeRateLimited
	case routing.KindUnauthorized:
		return NoticeUnauthorized
	case routing.KindNotFound:
		return NoticeNotFound
	default:
		excerpt := c.excerpt(result.Raw)
		if excerpt == "" {
			return NoticeGeneric
		}
		return NoticeGeneric + "\n(" + excerpt + ")"
	}
}

// excerpt flattens whitespace and caps the message at excerptLimit runes
func (c *Composer) excerpt(raw string) string {
	flat := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(flat) <= c.excerptLimit {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimSpace(string(runes[:c.excerptLimit])) + "…"
}
