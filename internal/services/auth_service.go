package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/utils"
)

const tokenIssuer = "concession_backend"

// Claims is the access-token payload. Subject holds the student ID or the staff ID.
type Claims struct {
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller, derived from a verified token.
type Principal struct {
	Subject    string
	Role       string
	Department string
	Token      string
	ExpiresAt  time.Time
}

func (p Principal) IsStaff() bool   { return p.Role == models.RoleStaff }
func (p Principal) IsStudent() bool { return p.Role == models.RoleStudent }

// StaffID returns the numeric staff id of a staff principal.
func (p Principal) StaffID() (uint, bool) {
	if !p.IsStaff() {
		return 0, false
	}
	id, err := strconv.ParseUint(p.Subject, 10, 64)
	return uint(id), err == nil
}

type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthService) TTL() time.Duration { return a.ttl }

// VerifyStudent matches a student by college ID and exact date of birth.
func (a *AuthService) VerifyStudent(ctx context.Context, id, dob string) (*models.Student, error) {
	canonical, err := normalizeDate("dob", dob)
	if err != nil {
		return nil, apperrors.Validation("Invalid date format. Use YYYY-MM-DD")
	}
	var student models.Student
	err = a.db.WithContext(ctx).First(&student, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && student.DOB != canonical) {
		return nil, apperrors.Unauthorized("Invalid student ID or date of birth")
	}
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	return &student, nil
}

// VerifyStaff matches a staff member by email and bcrypt password.
func (a *AuthService) VerifyStaff(ctx context.Context, email, password string) (*models.Staff, error) {
	var staff models.Staff
	err := a.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperrors.FromDB(err, "", "")
	}
	if !utils.CheckPassword(staff.Password, password) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	return &staff, nil
}

func (a *AuthService) IssueStudentToken(s *models.Student) (string, error) {
	return a.issue(s.ID, models.RoleStudent, s.Department)
}

func (a *AuthService) IssueStaffToken(s *models.Staff) (string, error) {
	return a.issue(strconv.FormatUint(uint64(s.ID), 10), models.RoleStaff, s.Department)
}

func (a *AuthService) issue(subject, role, department string) (string, error) {
	now := a.now()
	claims := Claims{
		Role:       role,
		Department: department,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthService) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}
	if !models.IsValidRole(claims.Role) || claims.Subject == "" {
		return nil, apperrors.Unauthorized("invalid token")
	}
	return claims, nil
}

// Authenticate verifies the token, rejects revoked tokens and checks that
// the account still exists. Staff department is read fresh from the store.
func (a *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := a.parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := a.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.Unauthorized("token revoked")
	}

	p := &Principal{
		Subject: claims.Subject,
		Role:    claims.Role,
		Token:   token,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	switch claims.Role {
	case models.RoleStaff:
		var staff models.Staff
		if err := a.db.WithContext(ctx).First(&staff, "id = ?", claims.Subject).Error; err != nil {
			return nil, apperrors.Unauthorized("staff not found")
		}
		p.Department = staff.Department
	case models.RoleStudent:
		var student models.Student
		if err := a.db.WithContext(ctx).First(&student, "id = ?", claims.Subject).Error; err != nil {
			return nil, apperrors.Unauthorized("student not found")
		}
		p.Department = student.Department
	}
	return p, nil
}

// Revoke blacklists the principal's token until it would have expired anyway.
func (a *AuthService) Revoke(ctx context.Context, p *Principal) error {
	expires := p.ExpiresAt
	if expires.IsZero() {
		expires = a.now().Add(a.ttl)
	}
	rec := models.RevokedToken{
		TokenHash: utils.SHA256Hex(p.Token),
		Subject:   p.Role + ":" + p.Subject,
		ExpiresAt: expires,
	}
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return apperrors.FromDB(err, "", "")
	}
	log.Info().Str("subject", rec.Subject).Msg("token revoked")
	return nil
}

func (a *AuthService) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token_hash = ?", utils.SHA256Hex(token)).
		Count(&count).Error
	if err != nil {
		return false, apperrors.FromDB(err, "", "")
	}
	return count > 0, nil
}

// PurgeExpiredRevocations drops revocation rows for tokens that have expired on their own.
func (a *AuthService) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	res := a.db.WithContext(ctx).Where("expires_at < ?", a.now()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
