package quiz

// State is the controller's position in a quiz sequence.
type State int

const (
	Idle State = iota
	SequenceActive
	QuestionPresented
	QuestionAnswered
	SequenceComplete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SequenceActive:
		return "sequence_active"
	case QuestionPresented:
		return "question_presented"
	case QuestionAnswered:
		return "question_answered"
	case SequenceComplete:
		return "sequence_complete"
	default:
		return "unknown"
	}
}
