package chat

import (
	"strings"
	"time"

	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

// DefaultSessionID addresses the conversation a tab opens with.
const DefaultSessionID = "default"

const keySeparator = "_"

// NormalizeSessionID maps a blank session id to DefaultSessionID.
func NormalizeSessionID(sessionID string) string {
	if s := strings.TrimSpace(sessionID); s != "" {
		return s
	}
	return DefaultSessionID
}

// Key addresses one persisted transcript.
type Key struct {
	OwnerID   string
	Tab       tab.ID
	SessionID string
}

// DocumentID renders the composite document id "{owner}_{tab}_{session}".
func (k Key) DocumentID() string {
	return Query{OwnerID: k.OwnerID, Tab: k.Tab}.Prefix() + k.SessionID
}

// Query selects the transcripts of one owner, optionally narrowed to a tab.
type Query struct {
	OwnerID string
	Tab     tab.ID
}

// Prefix is the document id prefix shared by every transcript the query selects.
func (q Query) Prefix() string {
	var b strings.Builder
	b.WriteString(q.OwnerID)
	b.WriteString(keySeparator)
	if q.Tab != "" {
		b.WriteString(string(q.Tab))
		b.WriteString(keySeparator)
	}
	return b.String()
}

// Matches checks the exact owner and tab fields, which the prefix alone cannot
// guarantee when ids themselves contain the separator.
func (q Query) Matches(t Transcript) bool {
	if t.OwnerID != q.OwnerID {
		return false
	}
	return q.Tab == "" || t.Tab == q.Tab
}

// Transcript is the persisted conversation of one (owner, tab, session).
type Transcript struct {
	OwnerID     string    `json:"userId"`
	Tab         tab.ID    `json:"tabType"`
	SessionID   string    `json:"sessionId"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Key returns the address of the transcript.
func (t Transcript) Key() Key {
	return Key{OwnerID: t.OwnerID, Tab: t.Tab, SessionID: t.SessionID}
}

// Clone deep-copies the message slice.
func (t Transcript) Clone() Transcript {
	t.Messages = CloneMessages(t.Messages)
	return t
}

// Summary describes a session for listings.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	Tab          tab.ID    `json:"tabType"`
	LastUpdated  time.Time `json:"lastUpdated"`
	MessageCount int       `json:"messageCount"`
}

// Summarize builds the listing entry of a transcript.
func (t Transcript) Summarize() Summary {
	return Summary{
		SessionID:    t.SessionID,
		Tab:          t.Tab,
		LastUpdated:  t.LastUpdated,
		MessageCount: len(t.Messages),
	}
}

// ContainsText reports whether any message contains query, ignoring case.
func (t Transcript) ContainsText(query string) bool {
	needle := strings.ToLower(query)
	for _, msg := range t.Messages {
		if strings.Contains(strings.ToLower(msg.Content), needle) {
			return true
		}
	}
	return false
}
