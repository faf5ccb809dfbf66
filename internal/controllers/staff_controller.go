package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/services"
)

type StaffController struct {
	Staff *services.StaffService
}

type createStaffRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Department string `json:"department" binding:"required"`
}

type updateStaffRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password"`
	Department *string `json:"department"`
}

func (sc *StaffController) List(c *gin.Context) {
	staff, err := sc.Staff.List(c.Request.Context())
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (sc *StaffController) Create(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	staff, err := sc.Staff.Create(c.Request.Context(), services.CreateStaffInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

func (sc *StaffController) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	staff, err := sc.Staff.Get(c.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (sc *StaffController) GetByEmail(c *gin.Context) {
	staff, err := sc.Staff.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (sc *StaffController) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req updateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	staff, err := sc.Staff.Update(c.Request.Context(), id, services.UpdateStaffInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (sc *StaffController) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := sc.Staff.Delete(c.Request.Context(), id); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
