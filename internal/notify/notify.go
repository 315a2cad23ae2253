// Package notify shows transient, dismissible messages.
//
// The presenter keeps no state of its own: every notification lives on the
// Surface it was shown on, and removal is a scheduled callback. There is no
// queue and no de-duplication, so concurrent notifications simply stack.
package notify

import (
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitness-hub/internal/clock"
)

// Lifetime is how long a notification stays up unless dismissed earlier.
const Lifetime = 5 * time.Second

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
)

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}

// Surface is where notifications are rendered. RemoveNotification must
// ignore unknown IDs: a notification may be dismissed by hand before its
// timer fires.
type Surface interface {
	AddNotification(n Notification)
	RemoveNotification(id string)
}

type Presenter struct {
	clock clock.Clock
}

func NewPresenter(c clock.Clock) *Presenter {
	if c == nil {
		c = clock.Real{}
	}
	return &Presenter{clock: c}
}

// Show renders message on s and schedules its removal after Lifetime.
func (p *Presenter) Show(s Surface, message string, sev Severity) Notification {
	n := Notification{
		ID:        xid.New().String(),
		Message:   message,
		Severity:  sev,
		CreatedAt: time.Now(),
	}
	s.AddNotification(n)
	p.clock.AfterFunc(Lifetime, func() { s.RemoveNotification(n.ID) })
	return n
}

// Dismiss removes a notification immediately.
func (p *Presenter) Dismiss(s Surface, id string) {
	s.RemoveNotification(id)
}
