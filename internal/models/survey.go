package models

import "time"

// Survey is an append-only satisfaction questionnaire response, keyed to a
// student through their member number. LearningGoals is stored as a
// comma-joined list, the format the original intake form produced.
type Survey struct {
	ID                 string    `db:"id" json:"id"`
	MemberNumber       string    `db:"member_number" json:"memberNumber"`
	StudentName        string    `db:"student_name" json:"studentName"`
	Satisfaction       int       `db:"satisfaction" json:"satisfaction"`
	NPSScore           int       `db:"nps_score" json:"npsScore"`
	InstructorFeedback string    `db:"instructor_feedback" json:"instructorFeedback"`
	LessonFeedback     string    `db:"lesson_feedback" json:"lessonFeedback"`
	LearningGoals      string    `db:"learning_goals" json:"learningGoals"`
	OtherFeedback      string    `db:"other_feedback" json:"otherFeedback"`
	SubmittedAt        time.Time `db:"submitted_at" json:"submittedAt"`
}
