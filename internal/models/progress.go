package models

import "time"

// Weekly check field names. A weekly record tracks two completion pairs:
// the DM (next-lesson scheduling message) and the lesson itself.
const (
	WeeklyFieldDM     = "dm"
	WeeklyFieldLesson = "lesson"
)

// WeeklyFieldCount is the number of completion pairs contributing to the
// weekly completion percentage.
const WeeklyFieldCount = 2

// WeeklyRecord is one student's checklist state for one ISO week. The
// boolean of each pair is derived from its date: a non-empty date means
// done. At most one record exists per (weekKey, studentId); writes replace.
type WeeklyRecord struct {
	WeekKey    string    `db:"week_key" json:"weekKey"`
	StudentID  string    `db:"student_id" json:"studentId"`
	DM         bool      `db:"dm" json:"dm"`
	DMDate     string    `db:"dm_date" json:"dmDate"`
	Lesson     bool      `db:"lesson" json:"lesson"`
	LessonDate string    `db:"lesson_date" json:"lessonDate"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`
}

// MonthlyRecord is one student's payment/survey state for one calendar
// month. Same keying and replace semantics as WeeklyRecord.
type MonthlyRecord struct {
	MonthKey  string    `db:"month_key" json:"monthKey"`
	StudentID string    `db:"student_id" json:"studentId"`
	Paid      bool      `db:"paid" json:"paid"`
	LastPaid  string    `db:"last_paid" json:"lastPaid"`
	Survey    bool      `db:"survey" json:"survey"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// MonthlyOverviewRow is the manager view: every student joined with their
// monthly check for the selected month, present or not.
type MonthlyOverviewRow struct {
	ID             string  `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	MemberNumber   string  `db:"member_number" json:"memberNumber"`
	Email          string  `db:"email" json:"email"`
	Note           string  `db:"note" json:"note"`
	InstructorID   *string `db:"instructor_id" json:"instructorId"`
	InstructorName *string `db:"instructor_name" json:"instructorName"`
	Paid           bool    `db:"paid" json:"paid"`
	LastPaid       string  `db:"last_paid" json:"lastPaid"`
	Survey         bool    `db:"survey" json:"survey"`
}
