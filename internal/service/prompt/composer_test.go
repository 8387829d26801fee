package prompt

import (
	"strings"
	"testing"

	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

const (
	childFragment = "Use short, fun, and easy-to-understand language."
	teenFragment  = "Use casual and relatable tone."
	adultFragment = "Use a mature, informative, and respectful tone."
	hindiFragment = "You must respond in Hinglish"
	simpleFrag    = "Always reply in short and simple sentences."
	casualFrag    = "Be extra casual, like a chill friend."
	phrasesFrag   = "kya baat hai"
)

func newComposer() *Composer {
	return NewComposer(tab.NewMemoryStore(tab.Seed()))
}

func baseContext() Context {
	return Context{Age: 16, Gender: "Girl", BuddyName: "Brightly", Tab: tab.AskBrightly}
}

func TestAgeGroupBoundaries(t *testing.T) {
	tests := []struct {
		age  int
		want AgeGroup
	}{
		{age: 0, want: AgeGroupChild},
		{age: 12, want: AgeGroupChild},
		{age: 13, want: AgeGroupTeen},
		{age: 17, want: AgeGroupTeen},
		{age: 18, want: AgeGroupAdult},
		{age: 70, want: AgeGroupAdult},
	}

	c := newComposer()
	fragments := map[AgeGroup]string{
		AgeGroupChild: childFragment,
		AgeGroupTeen:  teenFragment,
		AgeGroupAdult: adultFragment,
	}

	for _, tt := range tests {
		if got := AgeGroupFor(tt.age); got != tt.want {
			t.Fatalf("AgeGroupFor(%d) = %s, want %s", tt.age, got, tt.want)
		}

		ctx := baseContext()
		ctx.Age = tt.age
		out := c.Compose(ctx)
		for group, fragment := range fragments {
			if contains := strings.Contains(out, fragment); contains != (group == tt.want) {
				t.Fatalf("age %d: fragment for %s present=%v", tt.age, group, contains)
			}
		}
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newComposer()
	ctx := Context{Age: 30, Gender: "Boy", BuddyName: "Sunny", Tab: tab.StudyBuddy, Tone: ToneDetailed, Language: LanguageHindi, MemoryNote: "Likes math"}
	if first, second := c.Compose(ctx), c.Compose(ctx); first != second {
		t.Fatalf("compose not deterministic:\n%s\n%s", first, second)
	}
}

func TestLanguageDirective(t *testing.T) {
	c := newComposer()
	for _, lang := range []Language{"", LanguageEnglish, LanguageHindi} {
		ctx := baseContext()
		ctx.Language = lang
		got := strings.Contains(c.Compose(ctx), hindiFragment)
		if got != (lang == LanguageHindi) {
			t.Fatalf("language %q: hindi directive present=%v", lang, got)
		}
	}
}

func TestCasualHinglishClause(t *testing.T) {
	c := newComposer()

	ctx := baseContext()
	ctx.Tone = ToneCasual
	ctx.Language = LanguageHindi
	out := c.Compose(ctx)
	if !strings.Contains(out, casualFrag) || !strings.Contains(out, phrasesFrag) {
		t.Fatalf("casual hindi prompt missing clause: %s", out)
	}

	ctx.Language = LanguageEnglish
	out = c.Compose(ctx)
	if !strings.Contains(out, casualFrag) || strings.Contains(out, phrasesFrag) {
		t.Fatalf("casual english prompt should not carry hinglish phrases: %s", out)
	}

	ctx.Tone = ToneSimple
	ctx.Language = LanguageHindi
	if strings.Contains(c.Compose(ctx), phrasesFrag) {
		t.Fatalf("hinglish phrases only belong to the casual tone")
	}
}

func TestFragmentOrder(t *testing.T) {
	c := newComposer()
	ctx := Context{
		Age:        10,
		Gender:     "Boy",
		BuddyName:  "Sunny",
		Tab:        tab.PassionLab,
		Tone:       ToneCasual,
		Language:   LanguageHindi,
		MemoryNote: "User loves singing and enjoys classical music.",
	}
	out := c.Compose(ctx)

	markers := []string{
		"You are Sunny, a friendly AI companion. The user is 10 years old and identifies as Boy.",
		"Known information: User loves singing",
		hindiFragment,
		childFragment,
		"You are motivating the user to follow their interests",
		casualFrag,
		phrasesFrag,
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(out, marker)
		if idx < 0 {
			t.Fatalf("missing %q in %s", marker, out)
		}
		if idx <= last {
			t.Fatalf("fragment %q out of order in %s", marker, out)
		}
		last = idx
	}
}

func TestOptionalFragmentsSkipped(t *testing.T) {
	c := newComposer()
	out := c.Compose(Context{Age: 16, Gender: "Girl", BuddyName: "Brightly", Tab: tab.AskBrightly})
	want := "You are Brightly, a friendly AI companion. The user is 16 years old and identifies as Girl." +
		"\nUse casual and relatable tone. Be like a teenage friend or buddy. Keep the energy friendly, supportive, and smart."
	if out != want {
		t.Fatalf("unexpected prompt:\n%q\nwant\n%q", out, want)
	}
}

func TestUnknownTabAndToneContributeNothing(t *testing.T) {
	c := newComposer()
	base := c.Compose(baseContext())

	ctx := baseContext()
	ctx.Tab = "unknown-tab"
	ctx.Tone = "poetic"
	if got := c.Compose(ctx); got != base {
		t.Fatalf("unknown tab or tone changed the prompt:\n%s", got)
	}
}

func TestMissingIdentityFallsBackToDefaults(t *testing.T) {
	out := NewComposer(nil).Compose(Context{Age: 20})
	if !strings.HasPrefix(out, "You are Brightly, a friendly AI companion. The user is 20 years old and identifies as Other.") {
		t.Fatalf("unexpected identity line: %s", out)
	}
}

func TestContextForProfile(t *testing.T) {
	p := profile.Profile{OwnerID: "u1", Age: 16, Gender: "Girl", Language: "hindi", TonePreference: "simple"}
	ctx := ContextFor(p, tab.PassionLab, "note")
	if ctx.BuddyName != profile.DefaultBuddyName || ctx.Language != LanguageHindi || ctx.Tone != ToneSimple {
		t.Fatalf("unexpected context: %+v", ctx)
	}
	if ctx.Tab != tab.PassionLab || ctx.MemoryNote != "note" {
		t.Fatalf("unexpected context: %+v", ctx)
	}

	out := newComposer().Compose(ctx)
	if !strings.Contains(out, simpleFrag) {
		t.Fatalf("expected simple tone in %s", out)
	}
}

func TestContextForDefaultsTone(t *testing.T) {
	for _, pref := range []string{"", "shouty"} {
		ctx := ContextFor(profile.Profile{OwnerID: "u1", Age: 12, TonePreference: pref}, tab.AskBrightly, "")
		if ctx.Tone != ToneSimple {
			t.Fatalf("tone preference %q: expected simple, got %q", pref, ctx.Tone)
		}
	}
}
