package intake

import "errors"

// Submission guard errors. These are the only errors SubmitUserTurn returns;
// everything that goes wrong mid-exchange is recovered into the log itself.
var (
	// ErrEmptySubmission reports a submission with no text and no attachment.
	ErrEmptySubmission = errors.New("intake: empty submission")

	// ErrTurnInFlight reports that an exchange is already running for the
	// session.
	ErrTurnInFlight = errors.New("intake: a turn is already in flight")

	// ErrFinalized reports that the report has been delivered and the
	// session no longer accepts input.
	ErrFinalized = errors.New("intake: report already finalized")
)
