package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultAdminLimit = 50
	maxAdminLimit     = 200
)

// SortField names a column the admin listing may order by.
type SortField string

const (
	SortOrderedAt   SortField = "ordered_at"
	SortTotalAmount SortField = "total_amount"
	SortStatus      SortField = "status"
)

var sortFieldAliases = map[string]SortField{
	"ordered_at":   SortOrderedAt,
	"orderedat":    SortOrderedAt,
	"date":         SortOrderedAt,
	"total_amount": SortTotalAmount,
	"totalamount":  SortTotalAmount,
	"total":        SortTotalAmount,
	"status":       SortStatus,
}

// Sort is a single ordering directive.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort lists newest orders first.
var DefaultSort = Sort{Field: SortOrderedAt, Desc: true}

// ParseSort accepts "field" or "-field"; an empty value yields DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}
	desc := false
	switch {
	case strings.HasPrefix(raw, "-"):
		desc = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}
	field, ok := sortFieldAliases[strings.ToLower(raw)]
	if !ok {
		return Sort{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported sort field %q", raw))
	}
	return Sort{Field: field, Desc: desc}, nil
}

func (s Sort) clause() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("orders.%s %s, orders.id %s", s.Field, dir, dir)
}

// AdminFilter narrows the admin listing. Zero values mean "any".
type AdminFilter struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// AdminQuery drives ListAll.
type AdminQuery struct {
	Sort   Sort
	Filter AdminFilter
	Limit  int
	Offset int
}

func (q AdminQuery) normalized() (AdminQuery, error) {
	if q.Sort.Field == "" {
		q.Sort = DefaultSort
	}
	if q.Limit <= 0 {
		q.Limit = defaultAdminLimit
	}
	if q.Limit > maxAdminLimit {
		q.Limit = maxAdminLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Filter.Status != nil && !q.Filter.Status.IsValid() {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if q.Filter.From != nil && q.Filter.To != nil && q.Filter.To.Before(*q.Filter.From) {
		return q, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	return q, nil
}
