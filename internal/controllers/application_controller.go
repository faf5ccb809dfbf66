package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/models"
	"github.com/railconcession/concession_backend/internal/services"
)

type ApplicationController struct {
	Apps *services.ApplicationService
	// MaxUploadBytes caps a single document; a multipart request may carry two.
	MaxUploadBytes int64
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type certificateRequest struct {
	CertificateNo FlexibleString `json:"certificateNo"`
}

// parseForm bounds the request body and parses it as multipart.
func (ac *ApplicationController) parseForm(c *gin.Context) bool {
	limit := ac.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*limit+(1<<20))
	if err := c.Request.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
		return false
	}
	return true
}

func (ac *ApplicationController) formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > ac.MaxUploadBytes && ac.MaxUploadBytes > 0 {
		return nil, errFileTooLarge
	}
	return fh, nil
}

var errFileTooLarge = errors.New("file too large")

func (ac *ApplicationController) fileOr400(c *gin.Context, field string) (*multipart.FileHeader, bool) {
	fh, err := ac.formFile(c, field)
	if errors.Is(err, errFileTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": field + " exceeds the upload limit"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + field})
		return nil, false
	}
	return fh, true
}

// Create accepts the public multipart submission form.
func (ac *ApplicationController) Create(c *gin.Context) {
	if !ac.parseForm(c) {
		return
	}
	caste, ok := ac.fileOr400(c, "casteCertificate")
	if !ok {
		return
	}
	aadhar, ok := ac.fileOr400(c, "aadharCard")
	if !ok {
		return
	}
	app, err := ac.Apps.CreateApplication(c.Request.Context(), services.CreateApplicationInput{
		StudentID:             c.PostForm("studentId"),
		StudentName:           c.PostForm("studentName"),
		StudentDOB:            c.PostForm("studentDob"),
		RouteFrom:             c.PostForm("routeFrom"),
		RouteTo:               c.PostForm("routeTo"),
		Category:              c.PostForm("category"),
		PreviousCertificateNo: c.PostForm("previousCertificateNo"),
		CasteCertificate:      caste,
		AadharCard:            aadhar,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (ac *ApplicationController) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	app, err := ac.Apps.Get(c.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	if err := ownsStudentRecord(p, app.StudentID); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (ac *ApplicationController) ListByStudent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	studentID := strings.TrimSpace(c.Param("studentId"))
	if err := ownsStudentRecord(p, studentID); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	apps, err := ac.Apps.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// ListByStatus answers an unknown status with an empty list.
func (ac *ApplicationController) ListByStatus(c *gin.Context) {
	status, ok := models.ParseApplicationStatus(c.Param("status"))
	if !ok {
		c.JSON(http.StatusOK, []models.Application{})
		return
	}
	apps, err := ac.Apps.ListByStatus(c.Request.Context(), status)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (ac *ApplicationController) List(c *gin.Context) {
	page := pageFromQuery(c)
	f := services.ApplicationFilter{
		StudentID: c.Query("studentId"),
		CertStart: c.Query("certificateStart"),
		CertEnd:   c.Query("certificateEnd"),
		Page:      page,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := models.ParseApplicationStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + raw})
			return
		}
		f.Status = &status
	}
	if d := strings.TrimSpace(c.Query("department")); d != "" {
		f.Departments = ac.Apps.DepartmentsFor(d)
	}

	apps, total, err := ac.Apps.List(c.Request.Context(), f)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps, "meta": pageMeta(page, total)})
}

// ListForDepartment returns applications from the caller's department group.
func (ac *ApplicationController) ListForDepartment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	apps, err := ac.Apps.ListByDepartments(c.Request.Context(), []string{p.Department})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (ac *ApplicationController) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var departments []string
	if strings.EqualFold(c.Query("scope"), "department") {
		departments = ac.Apps.DepartmentsFor(p.Department)
	}
	stats, err := ac.Apps.Stats(c.Request.Context(), departments)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ac *ApplicationController) UpdateStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status, _ := models.ParseApplicationStatus(req.Status)
	app, err := ac.Apps.UpdateApplicationStatus(c.Request.Context(), id, status)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (ac *ApplicationController) AssignCertificate(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req certificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	app, err := ac.Apps.AssignCertificateNumber(c.Request.Context(), id, req.CertificateNo.String())
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// UploadAadhar replaces the Aadhaar document. Students may only touch their own applications.
func (ac *ApplicationController) UploadAadhar(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	existing, err := ac.Apps.Get(c.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	if err := ownsStudentRecord(p, existing.StudentID); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	if !ac.parseForm(c) {
		return
	}
	fh, ok := ac.fileOr400(c, "aadharCard")
	if !ok {
		return
	}
	app, err := ac.Apps.UploadAadharCard(c.Request.Context(), id, fh)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
