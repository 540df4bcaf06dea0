package chat

import "sort"

// Presence maps user ids to online state. Updates are applied in arrival
// order with no ordering check, so a late stale event wins. Replace with a
// full roster is the only reconciliation.
type Presence struct {
	online map[string]bool
}

func NewPresence() *Presence {
	return &Presence{online: make(map[string]bool)}
}

func (p *Presence) Set(userID string, online bool) {
	if userID == "" {
		return
	}
	p.online[userID] = online
}

// Replace applies a full roster of online users. Users not in the roster are
// marked offline.
func (p *Presence) Replace(onlineIDs []string) {
	for id := range p.online {
		p.online[id] = false
	}
	for _, id := range onlineIDs {
		p.Set(id, true)
	}
}

func (p *Presence) IsOnline(userID string) bool {
	return p.online[userID]
}

// Online returns the ids currently marked online, sorted.
func (p *Presence) Online() []string {
	ids := make([]string, 0, len(p.online))
	for id, on := range p.online {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (p *Presence) Clear() {
	p.online = make(map[string]bool)
}
