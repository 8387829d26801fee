package chat

import (
	"testing"

	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

func TestKeyDocumentID(t *testing.T) {
	key := Key{OwnerID: "u1", Tab: tab.AskBrightly, SessionID: DefaultSessionID}
	if got := key.DocumentID(); got != "u1_ask-brightly_default" {
		t.Fatalf("unexpected document id %q", got)
	}
}

func TestNormalizeSessionID(t *testing.T) {
	for in, want := range map[string]string{"": DefaultSessionID, "  ": DefaultSessionID, " s1 ": "s1", "s2": "s2"} {
		if got := NormalizeSessionID(in); got != want {
			t.Errorf("NormalizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQueryPrefix(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{name: "owner and tab", query: Query{OwnerID: "u1", Tab: tab.PassionLab}, want: "u1_passion-lab_"},
		{name: "owner only", query: Query{OwnerID: "u1"}, want: "u1_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Prefix(); got != tt.want {
				t.Errorf("Prefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryMatchesIsExact(t *testing.T) {
	q := Query{OwnerID: "u1"}
	other := Transcript{OwnerID: "u1_ask-brightly", Tab: tab.AskBrightly, SessionID: "x"}
	if q.Matches(other) {
		t.Fatal("owner prefix collision must not match")
	}
	if !q.Matches(Transcript{OwnerID: "u1", Tab: tab.StudyBuddy}) {
		t.Fatal("owner-only query should match any tab")
	}
}

func TestTail(t *testing.T) {
	messages := make([]Message, 12)
	for i := range messages {
		messages[i] = Message{Role: RoleUser, Content: string(rune('a' + i))}
	}

	tail := Tail(messages, 10)
	if len(tail) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(tail))
	}
	if tail[0].Content != "c" || tail[9].Content != "l" {
		t.Fatalf("unexpected window %q..%q", tail[0].Content, tail[9].Content)
	}

	tail[0].Content = "changed"
	if messages[2].Content != "c" {
		t.Fatal("Tail must copy")
	}

	if got := Tail(messages[:3], 10); len(got) != 3 {
		t.Fatalf("expected short history untouched, got %d", len(got))
	}
}

func TestContainsText(t *testing.T) {
	tr := Transcript{Messages: []Message{{Role: RoleUser, Content: "Help with Algebra"}}}
	if !tr.ContainsText("algebra") {
		t.Fatal("expected case-insensitive match")
	}
	if tr.ContainsText("geometry") {
		t.Fatal("unexpected match")
	}
}
