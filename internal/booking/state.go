package booking

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionReject   Action = "reject"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Party is who may perform an action.
type Party int

const (
	PartyFarrier Party = 1 << iota
	PartyOwner
)

type edge struct {
	from    []Status
	to      Status
	parties Party
}

// transitions is the booking state machine:
//
//	pending -> confirmed -> in_progress -> completed
//	confirmed -> completed
//	pending|confirmed -> cancelled
var transitions = map[Action]edge{
	ActionConfirm:  {from: []Status{StatusPending}, to: StatusConfirmed, parties: PartyFarrier},
	ActionReject:   {from: []Status{StatusPending}, to: StatusCancelled, parties: PartyFarrier},
	ActionStart:    {from: []Status{StatusConfirmed}, to: StatusInProgress, parties: PartyFarrier},
	ActionComplete: {from: []Status{StatusConfirmed, StatusInProgress}, to: StatusCompleted, parties: PartyFarrier},
	ActionCancel:   {from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled, parties: PartyFarrier | PartyOwner},
}

func (a Action) Valid() bool {
	_, ok := transitions[a]
	return ok
}

// AllowedFor reports whether party may perform the action at all.
func (a Action) AllowedFor(p Party) bool {
	e, ok := transitions[a]
	return ok && e.parties&p != 0
}

// Next returns the status reached by applying a to from, false when the
// action is not permitted from that status.
func Next(from Status, a Action) (Status, bool) {
	e, ok := transitions[a]
	if !ok {
		return "", false
	}
	for _, s := range e.from {
		if s == from {
			return e.to, true
		}
	}
	return "", false
}

// EventType names the event emitted after a successful transition.
func (a Action) EventType() string {
	switch a {
	case ActionConfirm:
		return EventBookingConfirmed
	case ActionReject:
		return EventBookingRejected
	case ActionStart:
		return EventBookingStarted
	case ActionComplete:
		return EventBookingCompleted
	case ActionCancel:
		return EventBookingCancelled
	}
	return ""
}

const (
	EventBookingAdmitted  = "BOOKING_ADMITTED"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventBookingRejected  = "BOOKING_REJECTED"
	EventBookingStarted   = "BOOKING_STARTED"
	EventBookingCompleted = "BOOKING_COMPLETED"
	EventBookingCancelled = "BOOKING_CANCELLED"
)
