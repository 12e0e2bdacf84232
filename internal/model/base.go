package model

import (
	"strings"

	"github.com/google/uuid"
)

// Id prefixes per entity.
const (
	PrefixAppointment  = "apt_"
	PrefixCall         = "call_"
	PrefixNotification = "ntf_"
	PrefixMessage      = "msg_"
)

// NewID returns prefix followed by a random uuid without dashes.
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Role is the kind of caller using the system.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Identity is the caller on whose behalf an operation runs.
type Identity struct {
	Role   Role   `json:"role"`
	UserID string `json:"userId"`
}

// MaxPageSize caps page_size on list endpoints.
const MaxPageSize = 100

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`
	PageSize int `json:"pageSize" form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Bounds returns the [start,end) slice bounds for n items. Zero values mean "everything".
// The result always satisfies 0 <= start <= end <= n, whatever the page values.
func (p Pagination) Bounds(n int) (int, int) {
	if p.PageSize <= 0 {
		return 0, n
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if page-1 > n/p.PageSize {
		return n, n
	}
	start := (page - 1) * p.PageSize
	if start > n {
		start = n
	}
	end := n
	if p.PageSize < n-start {
		end = start + p.PageSize
	}
	return start, end
}
