package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusApproved: true, StatusDenied: true, StatusCancelled: true},
	StatusApproved:  {},
	StatusDenied:    {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal states accept note-only updates but no further transitions.
func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// HoldsStock reports whether an order in this state still has its stock reserved.
func (s Status) HoldsStock() bool {
	return s == StatusPending || s == StatusApproved
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
