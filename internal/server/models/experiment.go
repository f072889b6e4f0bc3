package models

import "database/sql"

// ExperimentStatus is the activation state of an experiment. Enrollment and
// participant actions are only permitted while the experiment is active.
type ExperimentStatus string

const (
	ExperimentActive   ExperimentStatus = "ACTIVE"
	ExperimentInactive ExperimentStatus = "INACTIVE"
)

// Experiment is a single study participants can be enrolled in. ProjectKey
// references the optional stored project blob in the object store; GUIURL is
// the optional endpoint of the experiment's frontend.
type Experiment struct {
	ID          int64
	Title       string
	Description sql.NullString
	Info        sql.NullString
	Postscript  sql.NullString
	Status      ExperimentStatus
	GUIURL      sql.NullString
	ProjectKey  sql.NullString
}

// Active reports whether the experiment currently accepts participant actions.
func (e *Experiment) Active() bool {
	return e.Status == ExperimentActive
}

// Deactivate marks the experiment inactive. Participant accounts are not
// touched here.
func (e *Experiment) Deactivate() {
	e.Status = ExperimentInactive
}
