// Package notifier delivers user-facing notifications for completed or
// failed workflows. Background work never notifies.
package notifier

import (
	"context"
	"errors"

	"github.com/julianstephens/phaseplan/internal/constants"
)

// Notification is one user-facing message.
type Notification struct {
	Title       string
	Description string
	Variant     constants.NotificationVariant
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Optional wraps a notifier whose target may be absent, such as the desktop
// companion. ErrCompanionNotRunning is swallowed; other errors pass through.
func Optional(n Notifier) Notifier {
	return optional{n}
}

type optional struct{ Notifier }

func (o optional) Notify(ctx context.Context, n Notification) error {
	if err := o.Notifier.Notify(ctx, n); err != nil && !errors.Is(err, ErrCompanionNotRunning) {
		return err
	}
	return nil
}

// Success builds a success notification.
func Success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: constants.NotifySuccess}
}

// Failure builds a destructive notification from an error.
func Failure(title string, err error) Notification {
	return Notification{Title: title, Description: err.Error(), Variant: constants.NotifyDestructive}
}
