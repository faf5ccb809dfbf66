package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/reports"
	"github.com/railconcession/concession_backend/internal/utils"
)

func TestRegisterStudent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStudentService(db)

	student, err := svc.Register(context.Background(), RegisterStudentInput{
		ID: "TU4F2222016", Name: "Asha Patil", DOB: "2003-05-14",
		Email: " Asha@College.edu ", Password: "secret", Department: "FEIT",
	})
	require.NoError(t, err)
	require.NotNil(t, student.Email)
	assert.Equal(t, "asha@college.edu", *student.Email)
	require.NotNil(t, student.Password)
	assert.True(t, utils.CheckPassword(*student.Password, "secret"))
	assert.True(t, student.Registered())

	_, err = svc.Register(context.Background(), RegisterStudentInput{
		ID: "TU4F2222016", Name: "Asha", DOB: "2003-05-14", Email: "other@college.edu",
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "Student ID already exists", apperrors.Message(err))

	_, err = svc.Register(context.Background(), RegisterStudentInput{
		ID: "TU4F2222017", Name: "Ravi", DOB: "2003-01-01", Email: "asha@college.edu",
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "Email already registered", apperrors.Message(err))

	_, err = svc.Register(context.Background(), RegisterStudentInput{ID: "X", Name: "X", DOB: "bad", Email: "x@college.edu"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterClaimsImplicitStudent(t *testing.T) {
	db := setupTestDB(t)
	apps, _ := newTestApplicationService(t, db)
	svc := NewStudentService(db)

	_, err := apps.CreateApplication(context.Background(), validInput(t, "TU4F2222016"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterStudentInput{
		ID: "TU4F2222016", Name: "Asha Patil", DOB: "2003-05-15", Email: "asha@college.edu",
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "a mismatched date of birth cannot claim the record")
	assert.Equal(t, "Date of birth does not match the existing student record", apperrors.Message(err))

	student, err := svc.Register(context.Background(), RegisterStudentInput{
		ID: "TU4F2222016", Name: "Asha Patil", DOB: "2003-05-14", Email: "asha@college.edu", Department: "SEIT",
	})
	require.NoError(t, err)
	assert.Equal(t, "SEIT", student.Department)
	assert.True(t, student.Registered())
}

func TestStudentDirectory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStudentService(db)
	seedStudent(t, db, "IT001", "FEIT")
	seedStudent(t, db, "IT002", "FEIT")
	seedStudent(t, db, "ME001", "SEMECH")

	list, total, err := svc.List(context.Background(), StudentFilter{Department: "FEIT", Page: Page{All: true}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	found, err := svc.Search(context.Background(), "me001")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ME001", found[0].ID)

	found, err = svc.Search(context.Background(), "%")
	require.NoError(t, err)
	assert.Empty(t, found, "wildcards are matched literally")

	_, err = svc.Search(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	dept := "TEIT"
	updated, err := svc.Update(context.Background(), "IT002", UpdateStudentInput{Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "TEIT", updated.Department)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteStudentWithApplicationsIsRefused(t *testing.T) {
	db := setupTestDB(t)
	apps, _ := newTestApplicationService(t, db)
	svc := NewStudentService(db)
	seedStudent(t, db, "LONE", "FEIT")

	_, err := apps.CreateApplication(context.Background(), validInput(t, "APPLIED"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "APPLIED")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	withApps, err := svc.GetWithApplications(context.Background(), "APPLIED")
	require.NoError(t, err)
	assert.Len(t, withApps.Applications, 1)

	require.NoError(t, svc.Delete(context.Background(), "LONE"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "LONE"), apperrors.ErrNotFound)
}

func TestStaffService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStaffService(db)

	a, err := svc.Create(context.Background(), CreateStaffInput{Name: "A", Email: "a@college.edu", Password: "pw", Department: "it"})
	require.NoError(t, err)
	assert.Equal(t, "IT", a.Department)
	b, err := svc.Create(context.Background(), CreateStaffInput{Name: "B", Email: "b@college.edu", Password: "pw", Department: "MECH"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateStaffInput{Name: "C", Email: "A@college.edu", Password: "pw", Department: "IT"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = svc.Create(context.Background(), CreateStaffInput{Name: "C", Email: "c@college.edu", Password: "pw"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	got, err := svc.GetByEmail(context.Background(), " B@COLLEGE.EDU ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	taken := "a@college.edu"
	_, err = svc.Update(context.Background(), b.ID, UpdateStaffInput{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "Email already in use", apperrors.Message(err))

	pw := "new-password"
	updated, err := svc.Update(context.Background(), b.ID, UpdateStaffInput{Password: &pw})
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(updated.Password, pw))

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.Delete(context.Background(), a.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), a.ID), apperrors.ErrNotFound)
	_, err = svc.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestImportStudents(t *testing.T) {
	db := setupTestDB(t)
	svc := NewStudentService(db)
	seedStudent(t, db, "EXISTS", "FEIT")

	rows := []reports.RosterRow{
		{Line: 2, ID: "TU1", Name: "Asha", DOB: "2003-05-14", Email: "asha@college.edu", Department: "FEIT"},
		{Line: 3, ID: "TU2", Name: "Ravi", DOB: "14/05/2003"},
		{Line: 4, ID: "EXISTS", Name: "Dup", DOB: "2003-05-14"},
		{Line: 5, ID: "TU3", Name: "Other", DOB: "2003-05-14", Email: "asha@college.edu"},
		{Line: 6, ID: "", Name: "NoID", DOB: "2003-05-14"},
		{Line: 7, ID: "TU4", Name: "Nisha", DOB: "2004-01-02"},
	}
	res := svc.Import(context.Background(), rows, []reports.RowError{{Line: 8, Error: "failed to read row"}})

	assert.Equal(t, 7, res.Total)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 5, res.Failed)
	lines := map[int]string{}
	for _, e := range res.Errors {
		lines[e.Line] = e.Error
	}
	assert.Equal(t, "Student ID already exists", lines[4])
	assert.Equal(t, "Email already registered", lines[5])
	assert.Contains(t, lines, 3)
	assert.Contains(t, lines, 6)
	assert.Contains(t, lines, 8)

	imported, err := svc.Get(context.Background(), "TU4")
	require.NoError(t, err)
	assert.Nil(t, imported.Email)
	assert.False(t, imported.Registered())
}
