package quotation

import (
	"fmt"

	"github.com/rgi-trading/procure/internal/shared"
)

// EditKind distinguishes the two triggers the negotiation machine reacts to.
type EditKind int

const (
	// EditContent is a change to goods, prices, or terms with no explicit
	// status request.
	EditContent EditKind = iota + 1
	// EditStatus is an explicit status update.
	EditStatus
)

// Audience names who gets notified after a transition.
type Audience int

const (
	// NotifyNone suppresses notification.
	NotifyNone Audience = iota
	// NotifyRequester notifies the quotation's requester.
	NotifyRequester
	// NotifyPrivileged notifies manager-tier roles, excluding the requester.
	NotifyPrivileged
	// NotifyAll notifies requester and privileged roles.
	NotifyAll
)

// Decision is the outcome of one machine step.
type Decision struct {
	Next       Status
	RoundDelta int
	Audience   Audience
}

// Input describes the attempted edit.
type Input struct {
	Current     Status
	Kind        EditKind
	Requested   Status // only for EditStatus
	Privileged  bool   // actor may change workflow status
	IsRequester bool
	CanEdit     bool // actor may edit content (admin tier)
}

// Decide is the negotiation transition function. It is pure: callers apply
// the returned decision and side effects themselves. The round counter
// increments only on entry into negotiation; a requester counter-offer in
// negotiation implicitly reopens review as renegotiation without touching
// the counter.
func Decide(in Input) (Decision, error) {
	if in.Current.Frozen() {
		return Decision{}, fmt.Errorf("%w: quotation is %s", shared.ErrInvalidTransition, in.Current)
	}

	switch in.Kind {
	case EditStatus:
		return decideStatus(in)
	case EditContent:
		return decideContent(in)
	default:
		return Decision{}, fmt.Errorf("%w: unknown edit kind", shared.ErrValidation)
	}
}

func decideStatus(in Input) (Decision, error) {
	if !in.Privileged {
		return Decision{}, fmt.Errorf("%w: only a manager may change quotation status", shared.ErrPermissionDenied)
	}
	if !in.Requested.IsValid() {
		return Decision{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, in.Requested)
	}
	if in.Requested == in.Current {
		return Decision{}, fmt.Errorf("%w: quotation already %s", shared.ErrInvalidTransition, in.Current)
	}

	allowed := map[Status][]Status{
		StatusWaiting:       {StatusNegotiation, StatusRejected, StatusProcess},
		StatusNegotiation:   {StatusRejected, StatusProcess, StatusWaiting},
		StatusRenegotiation: {StatusNegotiation, StatusRejected, StatusProcess, StatusWaiting},
	}
	for _, next := range allowed[in.Current] {
		if next != in.Requested {
			continue
		}
		d := Decision{Next: next, Audience: audienceFor(next)}
		if next == StatusNegotiation {
			d.RoundDelta = 1
		}
		return d, nil
	}
	return Decision{}, fmt.Errorf("%w: cannot move quotation from %s to %s", shared.ErrInvalidTransition, in.Current, in.Requested)
}

func decideContent(in Input) (Decision, error) {
	if !in.IsRequester && !in.CanEdit {
		return Decision{}, fmt.Errorf("%w: only the requester or an admin may edit this quotation", shared.ErrPermissionDenied)
	}

	// A counter-offer from the non-privileged side while under negotiation
	// implicitly reopens review.
	if in.Current == StatusNegotiation && !in.Privileged {
		return Decision{Next: StatusRenegotiation, Audience: audienceFor(StatusRenegotiation)}, nil
	}
	return Decision{Next: in.Current, Audience: NotifyNone}, nil
}

func audienceFor(next Status) Audience {
	switch next {
	case StatusWaiting, StatusRenegotiation:
		return NotifyPrivileged
	case StatusNegotiation, StatusRejected:
		return NotifyRequester
	case StatusProcess:
		return NotifyAll
	default:
		return NotifyNone
	}
}
