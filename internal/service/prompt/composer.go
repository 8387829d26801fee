// Package prompt turns a user's demographic and preference attributes into the
// system prompt sent to the generation model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

// Tone is the reply style the user asked for.
type Tone string

const (
	ToneSimple   Tone = "simple"
	ToneDetailed Tone = "detailed"
	ToneCasual   Tone = "casual"
)

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneSimple, ToneDetailed, ToneCasual:
		return true
	}
	return false
}

// Language is the reply language preference.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
)

// AgeGroup buckets ages for tone selection.
type AgeGroup string

const (
	AgeGroupChild AgeGroup = "child"
	AgeGroupTeen  AgeGroup = "teen"
	AgeGroupAdult AgeGroup = "adult"
)

// AgeGroupFor maps an age onto its group: up to 12 is a child, 13 to 17 a teen.
func AgeGroupFor(age int) AgeGroup {
	switch {
	case age <= 12:
		return AgeGroupChild
	case age <= 17:
		return AgeGroupTeen
	default:
		return AgeGroupAdult
	}
}

const (
	identityFormat = "You are %s, a friendly AI companion. The user is %d years old and identifies as %s."
	memoryFormat   = "\nKnown information: %s"

	hindiDirective  = "\nYou must respond in Hinglish (a friendly mix of Hindi and English, like a modern Indian teenager). Use an empathetic, buddy-like tone."
	hinglishPhrases = " Use common Hinglish phrases like “kya baat hai”, “don’t worry yaar”, etc."
)

var ageDirectives = map[AgeGroup]string{
	AgeGroupChild: "\nUse short, fun, and easy-to-understand language. Add emojis and positive encouragement.",
	AgeGroupTeen:  "\nUse casual and relatable tone. Be like a teenage friend or buddy. Keep the energy friendly, supportive, and smart.",
	AgeGroupAdult: "\nUse a mature, informative, and respectful tone. Be clear and helpful.",
}

var toneDirectives = map[Tone]string{
	ToneSimple:   "\nAlways reply in short and simple sentences. Use easy vocabulary.",
	ToneDetailed: "\nGive detailed and informative responses with examples or facts where needed.",
	ToneCasual:   "\nBe extra casual, like a chill friend. Add personality and light humor where appropriate.",
}

// Context is everything a system prompt depends on.
type Context struct {
	Age        int
	Gender     string
	BuddyName  string
	Tab        tab.ID
	Tone       Tone
	Language   Language
	MemoryNote string
}

// ContextFor builds a composition context from a stored profile.
func ContextFor(p profile.Profile, t tab.ID, memoryNote string) Context {
	p = p.WithDefaults()
	tone := Tone(p.TonePreference)
	if !tone.Valid() {
		tone = ToneSimple
	}
	return Context{
		Age:        p.Age,
		Gender:     p.Gender,
		BuddyName:  p.BuddyName,
		Tab:        t,
		Tone:       tone,
		Language:   Language(p.Language),
		MemoryNote: memoryNote,
	}
}

// Composer builds system prompts. It never performs I/O beyond the tab
// catalogue lookup, so the same Context always yields the same prompt.
type Composer struct {
	tabs tab.Store
}

// NewComposer creates a Composer reading tab directives from tabs.
func NewComposer(tabs tab.Store) *Composer {
	return &Composer{tabs: tabs}
}

// Compose appends the prompt fragments in their fixed order: identity, memory,
// language, age tone, tab directive, tone preference.
func (c *Composer) Compose(ctx Context) string {
	buddy := ctx.BuddyName
	if buddy == "" {
		buddy = profile.DefaultBuddyName
	}
	gender := ctx.Gender
	if gender == "" {
		gender = profile.DefaultGender
	}

	var b strings.Builder
	fmt.Fprintf(&b, identityFormat, buddy, ctx.Age, gender)

	if ctx.MemoryNote != "" {
		fmt.Fprintf(&b, memoryFormat, ctx.MemoryNote)
	}

	if ctx.Language == LanguageHindi {
		b.WriteString(hindiDirective)
	}

	b.WriteString(ageDirectives[AgeGroupFor(ctx.Age)])

	if c.tabs != nil {
		if item, ok := c.tabs.FindByID(ctx.Tab); ok && item.Directive != "" {
			b.WriteString("\n")
			b.WriteString(item.Directive)
		}
	}

	if directive, ok := toneDirectives[ctx.Tone]; ok {
		b.WriteString(directive)
		if ctx.Tone == ToneCasual && ctx.Language == LanguageHindi {
			b.WriteString(hinglishPhrases)
		}
	}

	return b.String()
}
