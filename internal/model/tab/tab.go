package tab

import "strings"

// ID identifies a feature tab.
type ID string

const (
	AskBrightly    ID = "ask-brightly"
	BloomingDays   ID = "blooming-days"
	Calculator     ID = "calculator"
	Calendar       ID = "calendar"
	ChatHistory    ID = "chat-history"
	DailyDose      ID = "daily-dose"
	FitnessTracker ID = "fitness-tracker"
	HealthAdvice   ID = "health-advice"
	NeedFriend     ID = "need-friend"
	NewsWeather    ID = "news-weather"
	PassionLab     ID = "passion-lab"
	StudyBuddy     ID = "study-buddy"
	TodoList       ID = "todo-list"
	LearnHow       ID = "learn-how"
)

// All lists every tab identifier in navigation order.
var All = []ID{
	AskBrightly, BloomingDays, Calculator, Calendar, ChatHistory, DailyDose, FitnessTracker,
	HealthAdvice, NeedFriend, NewsWeather, PassionLab, StudyBuddy, TodoList, LearnHow,
}

// Trigger writes Fact into the tab memory when a user message contains Keyword.
type Trigger struct {
	Keyword string
	Fact    string
}

// Matches reports whether text contains the keyword, ignoring case.
func (t Trigger) Matches(text string) bool {
	if t.Keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(t.Keyword))
}

// Tab captures a feature tab exposed to the frontend together with the data
// the chat core needs for it.
type Tab struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Chat             bool   `json:"chat"`
	GenderRestricted string `json:"genderRestricted,omitempty"`

	// Directive is appended to the system prompt for conversations on this tab.
	Directive string    `json:"-"`
	Triggers  []Trigger `json:"-"`
}

// MatchTrigger returns the first trigger whose keyword appears in text.
func (t Tab) MatchTrigger(text string) (Trigger, bool) {
	for _, trigger := range t.Triggers {
		if trigger.Matches(text) {
			return trigger, true
		}
	}
	return Trigger{}, false
}

// VisibleTo reports whether the tab shows up for a user with the given gender
// and hidden tab list.
func (t Tab) VisibleTo(gender string, hidden []string) bool {
	if t.GenderRestricted != "" && gender != t.GenderRestricted {
		return false
	}
	for _, id := range hidden {
		if ID(id) == t.ID {
			return false
		}
	}
	return true
}

// Seed provides the tab catalogue shipped with the app.
func Seed() []Tab {
	return []Tab{
		{ID: AskBrightly, Name: "Ask Brightly", Chat: true},
		{
			ID:               BloomingDays,
			Name:             "Blooming Days",
			Chat:             true,
			GenderRestricted: "Girl",
			Directive:        "You're helping the user with period tracking and menstrual health. Use comforting and body-positive tone.",
		},
		{ID: Calculator, Name: "Calculator", Chat: true},
		{ID: Calendar, Name: "Calendar", Chat: true},
		{ID: ChatHistory, Name: "Chat History"},
		{ID: DailyDose, Name: "Daily Dose", Chat: true},
		{ID: FitnessTracker, Name: "Fitness Tracker", Chat: true},
		{
			ID:        HealthAdvice,
			Name:      "Health Advice",
			Chat:      true,
			Directive: "You are one of the greatest Doctor. Give general health and wellness advice based on symptoms. Advice medicines according to the symptoms which are available in Indian medical stores. Suggest some home remedies as well.",
		},
		{
			ID:        NeedFriend,
			Name:      "Need a Friend?",
			Chat:      true,
			Directive: "This is an emotional support tab. You are a kind and caring friend. The user may be feeling sad, lonely, or anxious. Listen first, then support. No need to give solutions — just validate feelings.",
		},
		{
			ID:        NewsWeather,
			Name:      "News & Weather",
			Chat:      true,
			Directive: "You explain current events and weather reports in simple words. If the user asks about a news article, summarize it and explain tricky parts.",
		},
		{
			ID:        PassionLab,
			Name:      "Passion Lab",
			Chat:      true,
			Directive: "You are motivating the user to follow their interests or hobbies. Be inspiring and give creative suggestions or learning paths.",
			Triggers: []Trigger{
				{Keyword: "sing", Fact: "User loves singing and enjoys classical music."},
			},
		},
		{
			ID:        StudyBuddy,
			Name:      "Study Buddy",
			Chat:      true,
			Directive: "You are helping with academic questions. Give short, clear summaries or explanations. Encourage the user and simplify complex topics.",
		},
		{ID: TodoList, Name: "To-Do List", Chat: true},
		{ID: LearnHow, Name: "Learn How to Use", Chat: true},
	}
}
