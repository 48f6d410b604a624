package model

import "time"

// Group is the household (or team) that owns rotation definitions. Member
// identities live in the member-management feature; the engine only stores
// opaque member ids in rosters and assignee lists.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
