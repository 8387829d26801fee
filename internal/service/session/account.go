package session

import (
	"sync"

	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
)

// account is the application context of one signed-in owner: the profile
// prompts are composed from and one view per chat tab. It lives from SignIn
// to SignOut.
type account struct {
	mu      sync.Mutex
	ownerID string
	profile profile.Profile
	views   map[tab.ID]*view
}

func newAccount(p profile.Profile) *account {
	return &account{
		ownerID: p.OwnerID,
		profile: p,
		views:   make(map[tab.ID]*view),
	}
}

func (a *account) currentProfile() profile.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.profile
	p.HiddenTabs = append([]string(nil), p.HiddenTabs...)
	return p
}

func (a *account) setProfile(p profile.Profile) {
	a.mu.Lock()
	a.profile = p
	a.mu.Unlock()
}

// view returns the view of t, creating an idle one on first use.
func (a *account) view(t tab.ID) *view {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.views[t]
	if !ok {
		v = newView(a.ownerID, t)
		a.views[t] = v
	}
	return v
}

// existingView returns the view of t without creating one.
func (a *account) existingView(t tab.ID) (*view, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.views[t]
	return v, ok
}
