package event

import "github.com/driftchat/driftchat-go/internal/model"

// UserUpdated signals a user profile changed.
type UserUpdated struct {
	Base
	User *model.User `json:"user"`
}

func (e *UserUpdated) EventUser() *model.User { return e.User }

// UserDeleted signals a user account was removed.
type UserDeleted struct {
	Base
	User *model.User `json:"user"`
}

func (e *UserDeleted) EventUser() *model.User { return e.User }

// UserBanned signals a global ban.
type UserBanned struct {
	Base
	User *model.User `json:"user"`
}

func (e *UserBanned) EventUser() *model.User { return e.User }

// UserUnbanned signals a global ban was lifted.
type UserUnbanned struct {
	Base
	User *model.User `json:"user"`
}

func (e *UserUnbanned) EventUser() *model.User { return e.User }

// UserPresenceChanged signals online/away transitions.
type UserPresenceChanged struct {
	Base
	User *model.User `json:"user"`
}

func (e *UserPresenceChanged) EventUser() *model.User { return e.User }

// UserWatchingStart signals a user began watching a channel.
type UserWatchingStart struct {
	Base
	CID          string      `json:"cid"`
	User         *model.User `json:"user"`
	WatcherCount int         `json:"watcher_count,omitempty"`
}

func (e *UserWatchingStart) Cid() string { return e.CID }
func (e *UserWatchingStart) EventUser() *model.User { return e.User }

// UserWatchingStop signals a user stopped watching a channel.
type UserWatchingStop struct {
	Base
	CID          string      `json:"cid"`
	User         *model.User `json:"user"`
	WatcherCount int         `json:"watcher_count,omitempty"`
}

func (e *UserWatchingStop) Cid() string { return e.CID }
func (e *UserWatchingStop) EventUser() *model.User { return e.User }

// NotificationMutesUpdated carries the own user with refreshed user mutes.
type NotificationMutesUpdated struct {
	Base
	OwnUser *model.User `json:"me"`
}

func (e *NotificationMutesUpdated) Me() *model.User { return e.OwnUser }
