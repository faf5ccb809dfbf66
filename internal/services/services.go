package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/railconcession/concession_backend/internal/apperrors"
)

// dateLayout is the wire and storage format for dates of birth.
const dateLayout = "2006-01-02"

// normalizeDate validates a YYYY-MM-DD date and returns it in canonical form.
func normalizeDate(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.Validation("%s is required", field)
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", apperrors.Validation("invalid %s format, use YYYY-MM-DD", field)
	}
	return d.Format(dateLayout), nil
}

// Page controls pagination and ordering of list queries.
type Page struct {
	Page    int
	Limit   int
	All     bool
	SortBy  string
	SortDir string
}

const defaultLimit = 20

// apply adds ORDER BY and, unless All is set, OFFSET/LIMIT. sortable maps
// public sort keys to columns; unknown keys fall back to fallback.
func (p Page) apply(db *gorm.DB, sortable map[string]string, fallback string) *gorm.DB {
	col, ok := sortable[strings.ToLower(p.SortBy)]
	if !ok {
		col = fallback
	}
	dir := strings.ToUpper(p.SortDir)
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}
	db = db.Order(fmt.Sprintf("%s %s", col, dir))
	if p.All {
		return db
	}
	limit, page := p.Limit, p.Page
	if limit <= 0 {
		limit = defaultLimit
	}
	if page <= 0 {
		page = 1
	}
	return db.Offset((page - 1) * limit).Limit(limit)
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// likePattern escapes LIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(q)) + "%"
}
