package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"listing-tracker/models"
	"listing-tracker/utils"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// maxMessageLen is Telegram's limit on a single message text.
const maxMessageLen = 4096

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram sends HTML messages to one chat.
type Telegram struct {
	client *resty.Client
	chatID string
	logger *utils.Logger
}

// NewTelegram creates a client for the bot identified by token.
func NewTelegram(baseURL, token, chatID string, logger *utils.Logger) *Telegram {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/bot"+token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &Telegram{client: client, chatID: chatID, logger: logger}
}

// Send delivers text, split across several messages when it exceeds
// Telegram's length limit.
func (t *Telegram) Send(ctx context.Context, text string) error {
	for _, chunk := range SplitMessage(text, maxMessageLen) {
		var result apiResponse
		resp, err := t.client.R().
			SetContext(ctx).
			SetBody(sendMessageRequest{
				ChatID:                t.chatID,
				Text:                  chunk,
				ParseMode:             "HTML",
				DisableWebPagePreview: true,
			}).
			SetResult(&result).
			SetError(&result).
			Post("/sendMessage")
		if err != nil {
			return fmt.Errorf("notify: send message: %w", err)
		}
		if resp.IsError() || !result.OK {
			return fmt.Errorf("notify: send message: HTTP %d: %s", resp.StatusCode(), result.Description)
		}
	}
	t.logger.Info("[notify] Sent message to chat %s", t.chatID)
	return nil
}

// NotifyRun sends a summary of run when it found new or delisted listings.
// It reports whether a message was sent.
func (t *Telegram) NotifyRun(ctx context.Context, run *models.RunResult) (bool, error) {
	if len(run.New) == 0 && len(run.Removed) == 0 {
		t.logger.Debug("[notify] No changes, nothing to send")
		return false, nil
	}
	if err := t.Send(ctx, FormatScrapeSummary(run.New, run.Removed, "")); err != nil {
		return false, err
	}
	return true, nil
}

// SplitMessage breaks text into chunks of at most limit bytes, cutting at
// line boundaries where possible and never inside a UTF-8 sequence.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := runeCut(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// runeCut returns the largest index <= limit that starts a rune in s. A rune
// longer than limit is kept whole.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(s)
	}
	return cut
}
