package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/miroir/internal/client/notify"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// Notifications lists the feed, newest first. Unread entries are starred.
func (a *App) Notifications(_ context.Context) error {
	list := a.hub.List()
	if len(list) == 0 {
		a.println("No notifications.")
		return nil
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		a.printf("%s %d  %-14s %s  (%s)\n", mark, n.ID, n.Kind, n.Message, n.CreatedAt.Local().Format("02/01 15:04"))
	}
	return nil
}

// OpenNotification marks the notification read and moves to the page its
// kind belongs to.
func (a *App) OpenNotification(ctx context.Context, id string) error {
	nid, err := parseID(id)
	if err != nil {
		return err
	}
	n, ok := a.hub.Get(nid)
	if !ok {
		a.printf("No notification %d.\n", nid)
		return nil
	}

	a.hub.MarkAsRead(nid)
	a.println(n.Message)

	if route := routeFor(n.Kind); route != "" {
		return a.Open(ctx, route)
	}
	return nil
}

// ReadAll marks the whole feed read.
func (a *App) ReadAll(_ context.Context) error {
	a.hub.MarkAllAsRead()
	a.println("All notifications marked as read.")
	return nil
}

// RemoveNotification deletes one entry from the feed.
func (a *App) RemoveNotification(_ context.Context, id string) error {
	nid, err := parseID(id)
	if err != nil {
		return err
	}
	if _, ok := a.hub.Get(nid); !ok {
		a.printf("No notification %d.\n", nid)
		return nil
	}
	a.hub.Remove(nid)
	a.println("Notification removed.")
	return nil
}

// routeFor is the page a notification of kind k opens. SYSTEM
// notifications keep the current page.
func routeFor(k notify.Kind) string {
	switch k {
	case notify.KindNewPerception, notify.KindProfileView:
		return "/profil"
	case notify.KindNewMatch, notify.KindNewMessage:
		return "/messages"
	case notify.KindSystem:
		return ""
	}
	return ""
}

func parseID(s string) (notify.ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a notification id", common.ErrValidation, s)
	}
	return notify.ID(v), nil
}
