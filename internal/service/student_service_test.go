package service

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/class1/class1-admin-api/internal/models"
	"github.com/class1/class1-admin-api/internal/repository"
)

type mockStudentRepo struct {
	byID      map[string]*models.Student
	byNumber  map[string]*models.Student
	seq       int
	createErr map[string]int // member number -> times to fail with unique violation
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		byID:      make(map[string]*models.Student),
		byNumber:  make(map[string]*models.Student),
		createErr: make(map[string]int),
	}
}

func (m *mockStudentRepo) List(ctx context.Context, filter repository.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, models.StudentDetail{Student: *s})
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]models.StudentDetail, error) {
	out := make([]models.StudentDetail, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, models.StudentDetail{Student: *s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberNumber < out[j].MemberNumber })
	return out, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.byID[id]; ok {
		return &models.StudentDetail{Student: *s}, nil
	}
	return nil, nil
}

func (m *mockStudentRepo) FindByMemberNumber(ctx context.Context, number string) (*models.Student, error) {
	if s, ok := m.byNumber[number]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStudentRepo) MaxMemberNumber(ctx context.Context) (string, error) {
	max := ""
	for number := range m.byNumber {
		if number > max {
			max = number
		}
	}
	return max, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if remaining := m.createErr[student.MemberNumber]; remaining > 0 {
		m.createErr[student.MemberNumber] = remaining - 1
		// Simulate another process winning the race for this number.
		m.byNumber[student.MemberNumber] = &models.Student{MemberNumber: student.MemberNumber}
		return fmt.Errorf("constraint failed: UNIQUE constraint failed: students.member_number")
	}
	if _, taken := m.byNumber[student.MemberNumber]; taken {
		return fmt.Errorf("constraint failed: UNIQUE constraint failed: students.member_number")
	}
	m.seq++
	if student.ID == "" {
		student.ID = fmt.Sprintf("student-%d", m.seq)
	}
	cp := *student
	m.byID[student.ID] = &cp
	m.byNumber[student.MemberNumber] = &cp
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) (int64, error) {
	existing, ok := m.byID[student.ID]
	if !ok {
		return 0, nil
	}
	number := existing.MemberNumber
	cp := *student
	cp.MemberNumber = number
	m.byID[student.ID] = &cp
	m.byNumber[number] = &cp
	return 1, nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) (int64, error) {
	existing, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	delete(m.byNumber, existing.MemberNumber)
	delete(m.byID, id)
	return 1, nil
}

func (m *mockStudentRepo) Count(ctx context.Context) (int, error) {
	return len(m.byID), nil
}

type mockInstructorChecker struct {
	known map[string]bool
}

func (m *mockInstructorChecker) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if m.known[id] {
		return &models.Instructor{ID: id, Name: "Instructor"}, nil
	}
	return nil, nil
}

func newStudentService(repo *mockStudentRepo) *StudentService {
	return NewStudentService(repo, &mockInstructorChecker{known: map[string]bool{}}, nil, nil)
}

func TestStudentCreateAssignsSequentialNumbers(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	first, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "k11", first.MemberNumber)

	second, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "k12", second.MemberNumber)
}

func TestStudentCreateRollsOverLetter(t *testing.T) {
	repo := newMockStudentRepo()
	repo.byNumber["k99"] = &models.Student{MemberNumber: "k99"}
	svc := newStudentService(repo)

	student, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, "l11", student.MemberNumber)
}

func TestStudentCreateWrapsAroundAtEnd(t *testing.T) {
	repo := newMockStudentRepo()
	repo.byNumber["z99"] = &models.Student{MemberNumber: "z99"}
	svc := newStudentService(repo)

	student, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Dave"})
	require.NoError(t, err)
	assert.Equal(t, "k11", student.MemberNumber)
}

func TestStudentCreateRetriesOnUniqueViolation(t *testing.T) {
	repo := newMockStudentRepo()
	repo.createErr["k11"] = 1
	svc := newStudentService(repo)

	student, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Eve"})
	require.NoError(t, err)
	assert.Equal(t, "k12", student.MemberNumber)
}

func TestStudentCreateRejectsUnknownInstructor(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	missing := "2f9f4a38-1111-4222-8333-444455556666"
	_, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Frank", InstructorID: &missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instructor does not exist")
}

func TestStudentUpdateKeepsMemberNumber(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	created, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Grace"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateStudentRequest{Name: "Grace H."})
	require.NoError(t, err)
	assert.Equal(t, created.MemberNumber, updated.MemberNumber)
	assert.Equal(t, "Grace H.", updated.Name)
}

func TestStudentNextMemberNumberPreview(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	next, err := svc.NextMemberNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k11", next)

	_, err = svc.Create(context.Background(), CreateStudentRequest{Name: "Henry"})
	require.NoError(t, err)

	next, err = svc.NextMemberNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k12", next)
}

func TestStudentDeleteDoesNotRecycleNumbers(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	first, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Iris"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Jack"})
	require.NoError(t, err)
	assert.Equal(t, "k12", second.MemberNumber)

	require.NoError(t, svc.Delete(context.Background(), first.ID))

	third, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Kim"})
	require.NoError(t, err)
	assert.Equal(t, "k13", third.MemberNumber)
}

func TestStudentGetMissing(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentService(repo)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student not found")
}
