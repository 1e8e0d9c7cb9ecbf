package graph

import (
	"net/url"
	"strconv"
	"strings"
)

// SortDirection orders a collection query.
type SortDirection int

const (
	SortAscending SortDirection = iota
	SortDescending
)

// String returns the OData keyword for the direction.
func (d SortDirection) String() string {
	if d == SortDescending {
		return "desc"
	}

	return "asc"
}

// QueryParams holds the OData query options for a resource request.
type QueryParams struct {
	Select    []string
	Top       int
	OrderBy   string
	Direction SortDirection
	Filter    string
}

// NewQueryParams creates empty query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{}
}

// WithSelect restricts the response to fields.
func (q *QueryParams) WithSelect(fields ...string) *QueryParams {
	q.Select = append(q.Select, fields...)

	return q
}

// WithTop limits the number of items in a collection page.
func (q *QueryParams) WithTop(top int) *QueryParams {
	q.Top = top

	return q
}

// WithOrderBy sorts a collection by field.
func (q *QueryParams) WithOrderBy(field string, direction SortDirection) *QueryParams {
	q.OrderBy = field
	q.Direction = direction

	return q
}

// WithFilter sets an OData $filter expression.
func (q *QueryParams) WithFilter(filter string) *QueryParams {
	q.Filter = filter

	return q
}

// Validate rejects parameters Graph would refuse.
func (q *QueryParams) Validate() error {
	if q == nil {
		return nil
	}

	if q.Top < 0 {
		return ErrNegativePageSize
	}

	for _, field := range q.Select {
		if strings.TrimSpace(field) == "" {
			return ErrBlankSelectField
		}
	}

	return nil
}

// ToValues converts the parameters to URL values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if len(q.Select) > 0 {
		values.Set("$select", strings.Join(q.Select, ","))
	}

	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}

	if q.OrderBy != "" {
		orderBy := q.OrderBy
		if q.Direction == SortDescending {
			orderBy += " " + SortDescending.String()
		}

		values.Set("$orderby", orderBy)
	}

	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}

	return values
}
