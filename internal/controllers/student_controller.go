package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/reports"
	"github.com/railconcession/concession_backend/internal/services"
)

const maxRosterBytes = 10 << 20

type StudentController struct {
	Students *services.StudentService
}

type updateStudentRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Category   *string `json:"category"`
	Department *string `json:"department"`
}

// List supports department, limit, page, all, sort_by and sort_dir.
func (sc *StudentController) List(c *gin.Context) {
	page := pageFromQuery(c)
	students, total, err := sc.Students.List(c.Request.Context(), services.StudentFilter{
		Department: c.Query("department"),
		Page:       page,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	meta := pageMeta(page, total)
	if d := c.Query("department"); d != "" {
		meta["department"] = d
	}
	c.JSON(http.StatusOK, gin.H{"data": students, "meta": meta})
}

func (sc *StudentController) Search(c *gin.Context) {
	students, err := sc.Students.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (sc *StudentController) Get(c *gin.Context) {
	student, err := sc.Students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (sc *StudentController) GetWithApplications(c *gin.Context) {
	out, err := sc.Students.GetWithApplications(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (sc *StudentController) Update(c *gin.Context) {
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	student, err := sc.Students.Update(c.Request.Context(), c.Param("id"), services.UpdateStudentInput{
		Name:       req.Name,
		Email:      req.Email,
		Category:   req.Category,
		Department: req.Department,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (sc *StudentController) Delete(c *gin.Context) {
	if err := sc.Students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Import bulk-creates students from a roster CSV uploaded as the "file" field.
// Expected header columns (case-insensitive): id, name, dob, and optionally
// email, category, department.
func (sc *StudentController) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRosterBytes)
	if err := c.Request.ParseMultipartForm(maxRosterBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
		return
	}
	file, fh, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fh.Filename)), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are allowed"})
		return
	}

	rows, readErrors, err := reports.ReadRoster(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := sc.Students.Import(c.Request.Context(), rows, readErrors)
	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"total_rows": res.Total,
			"inserted":   res.Inserted,
			"failed":     res.Failed,
		},
		"errors": res.Errors,
	})
}
