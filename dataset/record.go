// Package dataset builds and serializes the fine-tuning dataset: one
// two-turn conversation per rendered dial, stored as line-delimited JSON.
package dataset

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bbiangul/moldstamp/llm"
	"github.com/bytedance/sonic"
)

// Roles of the conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Record is one dataset line.
type Record struct {
	Messages []Message `json:"messages"`
}

// Message is a conversation turn. User turns carry content parts; the
// assistant turn carries a plain string.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content is either a plain string or a list of content parts. It encodes
// as a JSON string when Parts is nil and as an array otherwise.
type Content struct {
	Text  string
	Parts []llm.ContentPart
}

// TextContent returns string content.
func TextContent(s string) Content { return Content{Text: s} }

// PartsContent returns array content.
func PartsContent(parts ...llm.ContentPart) Content {
	if parts == nil {
		parts = []llm.ContentPart{}
	}
	return Content{Parts: parts}
}

// IsParts reports whether the content is an array of parts.
func (c Content) IsParts() bool { return c.Parts != nil }

// String returns the text of the content; for part lists the text parts
// are joined with newlines.
func (c Content) String() string {
	if !c.IsParts() {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == llm.PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return sonic.Marshal(c.Parts)
	}
	return sonic.Marshal(c.Text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Content{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		parts := []llm.ContentPart{}
		if err := sonic.Unmarshal(data, &parts); err != nil {
			return err
		}
		c.Parts = parts
		return nil
	case data[0] == '"':
		return sonic.Unmarshal(data, &c.Text)
	default:
		return fmt.Errorf("dataset: content must be a string or an array, got %.20s", data)
	}
}

// NewRecord builds the canonical conversation: the user turn carries the
// task prompt followed by the image reference, the assistant turn the answer.
func NewRecord(prompt, imageURL, answer string) Record {
	return Record{Messages: []Message{
		{Role: RoleUser, Content: PartsContent(llm.TextPart(prompt), llm.ImagePart(imageURL))},
		{Role: RoleAssistant, Content: TextContent(answer)},
	}}
}

// ImageURL returns the image reference a reader of the record would use:
// the last image part of the last user turn, or "" when there is none.
func (r Record) ImageURL() string {
	var url string
	for _, m := range r.Messages {
		if m.Role != RoleUser {
			continue
		}
		url = ""
		for _, p := range m.Content.Parts {
			if p.Type == llm.PartImage && p.ImageURL != nil {
				url = p.ImageURL.URL
			}
		}
	}
	return url
}

// Answer returns the content of the last assistant turn.
func (r Record) Answer() string {
	var answer string
	for _, m := range r.Messages {
		if m.Role == RoleAssistant {
			answer = m.Content.String()
		}
	}
	return answer
}

// Clone returns a deep copy of r, safe to modify independently.
func (r Record) Clone() Record {
	out := Record{Messages: make([]Message, len(r.Messages))}
	for i, m := range r.Messages {
		out.Messages[i] = m
		if m.Content.Parts == nil {
			continue
		}
		parts := make([]llm.ContentPart, len(m.Content.Parts))
		for j, p := range m.Content.Parts {
			if p.ImageURL != nil {
				u := *p.ImageURL
				p.ImageURL = &u
			}
			parts[j] = p
		}
		out.Messages[i].Content.Parts = parts
	}
	return out
}
