package models

import (
	"database/sql"
	"time"
)

// Participant is a (user, experiment) enrollment. Start and End are each set
// exactly once when the participant begins and finishes; the model does not
// enforce End to be after Start.
type Participant struct {
	UserID       int64
	ExperimentID int64
	Start        sql.NullTime
	End          sql.NullTime
}

// Begin records the start time unless it was already set. Experiment
// frontends call it when the participant opens the experiment and persist
// the result through UpdateParticipant.
func (p *Participant) Begin(t time.Time) {
	if !p.Start.Valid {
		p.Start = sql.NullTime{Time: t, Valid: true}
	}
}

// Finish records the end time unless it was already set. Like Begin, it is
// driven by the experiment frontend and persisted via UpdateParticipant.
func (p *Participant) Finish(t time.Time) {
	if !p.End.Valid {
		p.End = sql.NullTime{Time: t, Valid: true}
	}
}

// Unfinished reports whether the enrollment is still in flight.
func (p *Participant) Unfinished() bool {
	return !p.End.Valid
}
