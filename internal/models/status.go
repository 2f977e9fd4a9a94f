package models

// transitions lists the allowed status targets per current status.
// Terminal statuses (completed, cancelled, no_show) have no entries,
// and pending is never a valid target once left.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are possible.
func IsTerminalStatus(status string) bool {
	return len(transitions[status]) == 0
}

// OccupiesCapacity reports whether a booking in this status counts
// against slot capacity.
func OccupiesCapacity(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

// ValidResourceKind reports whether the value is a bookable resource kind.
func ValidResourceKind(kind string) bool {
	return kind == KindTestDrive || kind == KindService
}

// ValidStatus reports whether the value is a known booking status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
