package attachment

type State int

const (
	StateEmpty State = iota
	StateIngesting
	StateInvalid
	StateValidated
	StatePersisted
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIngesting:
		return "ingesting"
	case StateInvalid:
		return "invalid"
	case StateValidated:
		return "validated"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
