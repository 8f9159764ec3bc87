package quiz

import "errors"

var (
	ErrSequenceActive = errors.New("quiz: a sequence is already active")
	ErrSessionCap     = errors.New("quiz: session cap reached for this page")
	ErrDailyQuota     = errors.New("quiz: daily quiz quota reached")
	ErrNoCandidates   = errors.New("quiz: no candidate words")
	ErrStateViolation = errors.New("quiz: operation not allowed in the current state")
)
