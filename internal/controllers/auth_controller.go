package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/services"
)

type AuthController struct {
	Auth     *services.AuthService
	Students *services.StudentService
	Staff    *services.StaffService
}

type studentLoginRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	DOB       string `json:"dob" binding:"required"`
}

type staffLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type studentRegisterRequest struct {
	ID         string `json:"id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	DOB        string `json:"dob" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password"`
	Category   string `json:"category"`
	Department string `json:"department"`
}

func (a *AuthController) StudentLogin(c *gin.Context) {
	var req studentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	student, err := a.Auth.VerifyStudent(c.Request.Context(), req.StudentID, req.DOB)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	token, err := a.Auth.IssueStudentToken(student)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(a.Auth.TTL().Seconds()),
		"role":         models.RoleStudent,
		"student":      student,
	})
}

func (a *AuthController) StaffLogin(c *gin.Context) {
	var req staffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	staff, err := a.Auth.VerifyStaff(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	token, err := a.Auth.IssueStaffToken(staff)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(a.Auth.TTL().Seconds()),
		"role":         models.RoleStaff,
		"department":   staff.Department,
		"staff":        staff,
	})
}

func (a *AuthController) StudentRegister(c *gin.Context) {
	var req studentRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	student, err := a.Students.Register(c.Request.Context(), services.RegisterStudentInput{
		ID:         req.ID,
		Name:       req.Name,
		DOB:        req.DOB,
		Email:      req.Email,
		Password:   req.Password,
		Category:   req.Category,
		Department: req.Department,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registered", "student": student})
}

func (a *AuthController) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if p.IsStaff() {
		id, _ := p.StaffID()
		staff, err := a.Staff.Get(c.Request.Context(), id)
		if err != nil {
			middleware.HandleAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": p.Role, "department": staff.Department, "staff": staff})
		return
	}
	student, err := a.Students.Get(c.Request.Context(), p.Subject)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": p.Role, "department": student.Department, "student": student})
}

// Logout revokes the presented access token for the rest of its lifetime.
func (a *AuthController) Logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := a.Auth.Revoke(c.Request.Context(), p); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
