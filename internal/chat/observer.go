package chat

// Observer receives counters from the Router. Implementations must not block
// and must not call back into the Router.
type Observer interface {
	EventDelivered(eventType string)
	DeliveryFailed(eventType string)
	ActionRejected(actionType, reason string)
	RosterChanged(connected, bound int)
}

type nopObserver struct{}

func (nopObserver) EventDelivered(string)         {}
func (nopObserver) DeliveryFailed(string)         {}
func (nopObserver) ActionRejected(string, string) {}
func (nopObserver) RosterChanged(int, int)        {}
