package models

import "time"

// Student is a learner enrolled with the school. MemberNumber is assigned
// exactly once at creation by the allocator and never changes afterwards.
// InstructorID may dangle as nil after its instructor is deleted; the UI
// renders such students as unassigned.
type Student struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	InstructorID     *string   `db:"instructor_id" json:"instructorId"`
	MemberNumber     string    `db:"member_number" json:"memberNumber"`
	Email            string    `db:"email" json:"email"`
	Note             string    `db:"note" json:"note"`
	RegistrationDate *string   `db:"registration_date" json:"registrationDate"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentDetail joins the assigned instructor's name for list views.
type StudentDetail struct {
	Student
	InstructorName *string `db:"instructor_name" json:"instructorName,omitempty"`
}
