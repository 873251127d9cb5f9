package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
)

// conditions accumulates WHERE fragments with positional arguments.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(format string, value interface{}) {
	c.args = append(c.args, value)
	c.clauses = append(c.clauses, fmt.Sprintf(format, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return "WHERE 1=1"
	}
	return "WHERE " + strings.Join(c.clauses, " AND ")
}

// applyChildScope narrows rows that carry a course_id column.
func (c *conditions) applyChildScope(column string, scope policy.Scope) {
	if scope.InstructorID != "" {
		c.add(column+" IN (SELECT id FROM courses WHERE instructor_id = $%d)", scope.InstructorID)
	}
	if scope.PublishedOnly {
		c.add(column+" IN (SELECT id FROM courses WHERE status = $%d)", "published")
	}
	if scope.EnrolledUserID != "" {
		c.add(column+" IN (SELECT course_id FROM enrollments WHERE user_id = $%d)", scope.EnrolledUserID)
	}
}

func pageClause(page, pageSize int) string {
	page, pageSize = models.NormalizePage(page, pageSize)
	return fmt.Sprintf("LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
}
