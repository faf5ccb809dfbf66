package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/models"
)

func TestVerifyStudent(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)
	seedStudent(t, db, "TU4F2222016", "FEIT")

	student, err := auth.VerifyStudent(context.Background(), " TU4F2222016 ", "2003-01-01")
	require.NoError(t, err)
	assert.Equal(t, "TU4F2222016", student.ID)

	_, err = auth.VerifyStudent(context.Background(), "TU4F2222016", "2003-01-02")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = auth.VerifyStudent(context.Background(), "UNKNOWN", "2003-01-01")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = auth.VerifyStudent(context.Background(), "TU4F2222016", "01/01/2003")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestVerifyStaff(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)
	staff, err := NewStaffService(db).Create(context.Background(), CreateStaffInput{
		Name: "Meera", Email: "Meera@College.edu", Password: "pa55word", Department: "it",
	})
	require.NoError(t, err)

	got, err := auth.VerifyStaff(context.Background(), "meera@college.edu", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, got.ID)

	_, err = auth.VerifyStaff(context.Background(), "meera@college.edu", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = auth.VerifyStaff(context.Background(), "nobody@college.edu", "pa55word")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthenticateStaffToken(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)
	staff, err := NewStaffService(db).Create(context.Background(), CreateStaffInput{
		Name: "Meera", Email: "meera@college.edu", Password: "pa55word", Department: "IT",
	})
	require.NoError(t, err)

	token, err := auth.IssueStaffToken(staff)
	require.NoError(t, err)

	p, err := auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, p.IsStaff())
	assert.Equal(t, strconv.FormatUint(uint64(staff.ID), 10), p.Subject)
	assert.Equal(t, "IT", p.Department)
	id, ok := p.StaffID()
	assert.True(t, ok)
	assert.Equal(t, staff.ID, id)

	require.NoError(t, db.Delete(&models.Staff{}, staff.ID).Error)
	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "deleted accounts lose access")
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)
	seedStudent(t, db, "S1", "FEIT")

	_, err := auth.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	other := NewAuthService(db, "other-secret", time.Hour)
	token, err := other.IssueStudentToken(&models.Student{ID: "S1"})
	require.NoError(t, err)
	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "wrong signing key")

	expired := NewAuthService(db, "secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.IssueStudentToken(&models.Student{ID: "S1"})
	require.NoError(t, err)
	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "expired")

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Role: models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "S1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.Authenticate(context.Background(), signed)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "only HS256 is accepted")
}

func TestRevokeToken(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)
	seedStudent(t, db, "S1", "FEIT")

	token, err := auth.IssueStudentToken(&models.Student{ID: "S1", Department: "FEIT"})
	require.NoError(t, err)
	p, err := auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, p.IsStudent())
	assert.Equal(t, "FEIT", p.Department)

	require.NoError(t, auth.Revoke(context.Background(), p))
	require.NoError(t, auth.Revoke(context.Background(), p), "revoking twice is harmless")

	revoked, err := auth.IsRevoked(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, revoked)
	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	fresh, err := auth.IssueStudentToken(&models.Student{ID: "S1"})
	require.NoError(t, err)
	_, err = auth.Authenticate(context.Background(), fresh)
	assert.NoError(t, err, "other tokens of the same student stay valid")
}

func TestPurgeExpiredRevocations(t *testing.T) {
	db := setupTestDB(t)
	auth := NewAuthService(db, "secret", time.Hour)

	require.NoError(t, db.Create(&models.RevokedToken{TokenHash: "old", Subject: "student:S1", ExpiresAt: time.Now().UTC().Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.RevokedToken{TokenHash: "new", Subject: "student:S1", ExpiresAt: time.Now().UTC().Add(time.Hour)}).Error)

	n, err := auth.PurgeExpiredRevocations(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []models.RevokedToken
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].TokenHash)
}
