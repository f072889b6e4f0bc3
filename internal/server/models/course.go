package models

import (
	"database/sql"
	"time"
)

// CourseStatus is the activation state of a course.
type CourseStatus string

const (
	CourseActive   CourseStatus = "ACTIVE"
	CourseInactive CourseStatus = "INACTIVE"
)

// Course groups users and experiments. LastChanged is bumped on any
// structural edit and drives the inactivity sweep.
type Course struct {
	ID          int64
	Title       string
	Description sql.NullString
	Content     sql.NullString
	Status      CourseStatus
	LastChanged time.Time
}

// Active reports whether the course currently accepts structural changes.
func (c *Course) Active() bool {
	return c.Status == CourseActive
}

// Deactivate marks the course inactive.
func (c *Course) Deactivate() {
	c.Status = CourseInactive
}

// CourseExperiment links an experiment into a course. The link is a
// precondition for course-driven enrollment propagation.
type CourseExperiment struct {
	CourseID     int64
	ExperimentID int64
	Added        time.Time
}

// CourseParticipant records course membership, independent of any experiment.
type CourseParticipant struct {
	UserID   int64
	CourseID int64
	Added    time.Time
}
