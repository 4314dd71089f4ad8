package client

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/socket"
	"sharedcart/store"
)

// PresenceView shows who is online. The presence channel pushes the full
// membership on every sync, so reconciliation is simply "last sync wins":
// local state is replaced wholesale.
type PresenceView struct {
	mu            sync.Mutex
	sessionUserID string
	users         []store.OnlineUser
}

func NewPresenceView(sessionUserID string) *PresenceView {
	return &PresenceView{sessionUserID: sessionUserID}
}

// ApplySync replaces the online-user list with the snapshot. The entry
// matching the current session is flagged as "you".
func (v *PresenceView) ApplySync(members []store.OnlineUser) {
	for i := range members {
		members[i].You = members[i].UserID == v.sessionUserID
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Email < members[j].Email
	})

	v.mu.Lock()
	v.users = members
	v.mu.Unlock()
}

// ApplyEvent decodes a PRESENCE_SYNC message and applies it. Other
// message types are ignored.
func (v *PresenceView) ApplyEvent(msg socket.WSMessage) {
	if msg.Type != socket.PresenceSyncType {
		return
	}
	var members []store.OnlineUser
	if err := json.Unmarshal(msg.Payload, &members); err != nil {
		logger.Sugar.Errorf("Bad presence sync payload: %v", err)
		return
	}
	v.ApplySync(members)
}

// Users returns a snapshot copy of the online-user list.
func (v *PresenceView) Users() []store.OnlineUser {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]store.OnlineUser, len(v.users))
	copy(out, v.users)
	return out
}

// RefreshAccounts is the superseded alternative: list every registered
// account and show its last-seen time instead of live presence.
func (v *PresenceView) RefreshAccounts(ctx context.Context, lister AccountLister) error {
	profiles, err := lister.ListUsers(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to list accounts: %v", err)
		return err
	}

	members := make([]store.OnlineUser, 0, len(profiles))
	for _, p := range profiles {
		members = append(members, store.OnlineUser{
			UserID:   p.ID,
			Email:    p.Email,
			OnlineAt: p.LastSeen,
		})
	}
	v.ApplySync(members)
	return nil
}

// StartAccountPolling runs the superseded polling implementation until
// stopped.
func (v *PresenceView) StartAccountPolling(lister AccountLister, interval time.Duration) (stop func()) {
	return startPoller(interval, func() {
		_ = v.RefreshAccounts(context.Background(), lister)
	})
}
