package moex

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Order is the sort direction of an archive query.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

const (
	DefaultSort  = "TRADEDATE"
	DefaultOrder = OrderDesc

	// DateLayout is the ISO calendar date layout used by queries and storage.
	DateLayout = "2006-01-02"

	// reservedChars separate the parts of a page key or url, index and
	// sort names may not contain them.
	reservedChars = "#&=/?\\\x00"

	indexMarker   = "/index/"
	archiveMarker = "/archive"
	keyMarker     = "#"
)

// Query describes one archive request for an exchange index. it is a value
// type, build it with NewQuery or ParseQuery.
type Query struct {
	Index string
	From  time.Time
	Till  time.Time
	Sort  string
	Order Order
}

// QueryOption overrides a default of NewQuery.
type QueryOption func(q *Query)

func WithSort(field string) QueryOption {
	return func(q *Query) {
		if field != "" {
			q.Sort = field
		}
	}
}

func WithOrder(order Order) QueryOption {
	return func(q *Query) {
		if order != "" {
			q.Order = order
		}
	}
}

func parseISODate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// NewQuery validates the dates (YYYY-MM-DD) and fills in the default
// sort field and order.
func NewQuery(index, from, till string, opts ...QueryOption) (Query, error) {
	if index == "" {
		return Query{}, fmt.Errorf("%w: empty index name", ErrInvalidQuery)
	}
	fromDate, err := parseISODate(from)
	if err != nil {
		return Query{}, fmt.Errorf("from: %w", err)
	}
	tillDate, err := parseISODate(till)
	if err != nil {
		return Query{}, fmt.Errorf("till: %w", err)
	}

	q := Query{
		Index: index,
		From:  fromDate,
		Till:  tillDate,
		Sort:  DefaultSort,
		Order: DefaultOrder,
	}
	for _, opt := range opts {
		opt(&q)
	}
	if strings.ContainsAny(q.Index, reservedChars) {
		return Query{}, fmt.Errorf("%w: index %q contains one of %q", ErrInvalidQuery, q.Index, reservedChars)
	}
	if q.Sort == "" || strings.ContainsAny(q.Sort, reservedChars) {
		return Query{}, fmt.Errorf("%w: sort field %q is empty or contains one of %q", ErrInvalidQuery, q.Sort, reservedChars)
	}
	if q.Order != OrderAsc && q.Order != OrderDesc {
		return Query{}, fmt.Errorf("%w: unknown order %q", ErrInvalidQuery, q.Order)
	}
	return q, nil
}

func (q Query) params() string {
	return fmt.Sprintf(
		"from=%s&till=%s&sort=%s&order=%s",
		q.From.Format(DateLayout),
		q.Till.Format(DateLayout),
		q.Sort,
		q.Order,
	)
}

// String returns the page key of the query, ex.
// `IMOEX#from=2025-01-26&till=2025-02-26&sort=TRADEDATE&order=desc`.
func (q Query) String() string {
	return q.Index + keyMarker + q.params()
}

// URL returns the archive page of the query on the given site, ex.
// `https://www.moex.com/ru/index/IMOEX/archive?from=...`.
func (q Query) URL(baseURL string) string {
	return fmt.Sprintf(
		"%s/ru/index/%s%s?%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(q.Index),
		archiveMarker,
		q.params(),
	)
}

// Equal reports whether both queries describe the same request.
func (q Query) Equal(other Query) bool {
	return q.Index == other.Index &&
		q.From.Equal(other.From) &&
		q.Till.Equal(other.Till) &&
		q.Sort == other.Sort &&
		q.Order == other.Order
}

// paramValue extracts the value of `key=` up to the next `&` or the end of s.
func paramValue(s, key string) (string, bool) {
	prefix := key + "="
	for _, part := range strings.Split(s, "&") {
		if strings.HasPrefix(part, prefix) {
			return strings.TrimPrefix(part, prefix), true
		}
	}
	return "", false
}

func splitIndex(s string) (index string, params string, err error) {
	if start := strings.Index(s, indexMarker); start >= 0 {
		rest := s[start+len(indexMarker):]
		end := strings.Index(rest, archiveMarker)
		if end < 0 {
			return "", "", fmt.Errorf("%w: missing %q in %q", ErrInvalidQuery, archiveMarker, s)
		}
		index, err = url.PathUnescape(rest[:end])
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		rest = rest[end+len(archiveMarker):]
		if i := strings.IndexAny(rest, "?#"); i >= 0 {
			params = rest[i+1:]
		}
		return index, params, nil
	}

	index, params, _ = strings.Cut(s, keyMarker)
	return index, params, nil
}

// ParseQuery reconstructs a query from its page key or its archive URL.
// a missing sort field or order falls back to the defaults, dates are
// validated the same way NewQuery validates them.
func ParseQuery(s string) (Query, error) {
	index, params, err := splitIndex(s)
	if err != nil {
		return Query{}, err
	}
	if index == "" {
		return Query{}, fmt.Errorf("%w: no index name in %q", ErrInvalidQuery, s)
	}

	from, _ := paramValue(params, "from")
	till, _ := paramValue(params, "till")
	sort, _ := paramValue(params, "sort")
	order, _ := paramValue(params, "order")

	return NewQuery(index, from, till, WithSort(sort), WithOrder(Order(order)))
}
