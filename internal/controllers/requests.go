package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railconcession/concession_backend/internal/apperrors"
	"github.com/railconcession/concession_backend/internal/middleware"
	"github.com/railconcession/concession_backend/internal/services"
)

// FlexibleString accepts a JSON string or number. Certificate numbers arrive
// both ways depending on the client.
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*fs = FlexibleString(num.String())
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", string(data))
}

func (fs FlexibleString) String() string { return string(fs) }

// pageFromQuery reads limit, page, all, sort_by and sort_dir.
func pageFromQuery(c *gin.Context) services.Page {
	p := services.Page{
		All:     strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1",
		SortBy:  strings.ToLower(c.Query("sort_by")),
		SortDir: strings.ToUpper(c.DefaultQuery("sort_dir", "DESC")),
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	if n, err := strconv.Atoi(c.Query("page")); err == nil && n > 0 {
		p.Page = n
	}
	return p
}

func pageMeta(p services.Page, total int64) gin.H {
	meta := gin.H{"total": total, "all": p.All}
	if !p.All {
		limit, page := p.Limit, p.Page
		if limit == 0 {
			limit = 20
		}
		if page == 0 {
			page = 1
		}
		meta["limit"] = limit
		meta["page"] = page
		meta["sort_by"] = p.SortBy
		meta["sort_dir"] = p.SortDir
	}
	return meta
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(n), true
}

// principal returns the authenticated caller or answers 401.
func principal(c *gin.Context) (*services.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return p, ok
}

// ownsStudentRecord lets staff through and restricts students to their own ID.
func ownsStudentRecord(p *services.Principal, studentID string) error {
	if p.IsStudent() && p.Subject != studentID {
		return apperrors.Forbidden("You can only access your own applications")
	}
	return nil
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
