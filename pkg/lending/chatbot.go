package lending

import "strings"

// FallbackReply is returned when no keyword matches.
const FallbackReply = "Please ask about loans!"

// Reply maps a keyword to a canned answer.
type Reply struct {
	Keyword string `json:"keyword"`
	Text    string `json:"text"`
}

// GuidanceChatbot answers with the first reply whose keyword occurs in the
// query. Order of the table is significant.
type GuidanceChatbot struct {
	replies []Reply
}

// ChatbotState is the ordered reply table.
type ChatbotState struct {
	Replies []Reply `json:"replies"`
}

func NewGuidanceChatbot() *GuidanceChatbot {
	return &GuidanceChatbot{replies: []Reply{
		{Keyword: "loan", Text: "We offer various loans!"},
		{Keyword: "help", Text: "Ask me anything!"},
	}}
}

// AddReply appends a reply with lower priority than every existing one.
func (c *GuidanceChatbot) AddReply(keyword, text string) {
	c.replies = append(c.replies, Reply{Keyword: strings.ToLower(keyword), Text: text})
}

func (c *GuidanceChatbot) Match(query string) string {
	q := strings.ToLower(query)
	for _, r := range c.replies {
		if strings.Contains(q, r.Keyword) {
			return r.Text
		}
	}
	return FallbackReply
}

func (c *GuidanceChatbot) Snapshot() ChatbotState {
	return ChatbotState{Replies: append([]Reply(nil), c.replies...)}
}

func (c *GuidanceChatbot) Restore(state ChatbotState) error {
	c.replies = append([]Reply(nil), state.Replies...)
	return nil
}
