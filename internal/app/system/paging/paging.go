// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the ?limit= query parameter.
const MaxPageSize = 200

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // sort ascending, "gt" cursor
	Backward                  // sort descending, "lt" cursor
)

// Request is a parsed keyset page request.
type Request struct {
	Limit     int
	Direction Direction
	SortOrder int
	Before    string
	After     string
	Cursor    *wafflemongo.Cursor
}

// Page is the pagination envelope returned alongside list rows.
type Page struct {
	HasPrev bool   `json:"has_prev"`
	HasNext bool   `json:"has_next"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
}

// ParseLimit reads ?limit=, defaulting to PageSize and capping at MaxPageSize.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// FromRequest reads ?before=, ?after= and ?limit=. before takes precedence.
func FromRequest(r *http.Request) Request {
	return Configure(query.Get(r, "before"), query.Get(r, "after"), ParseLimit(r))
}

// Configure determines pagination direction and decodes the cursor.
func Configure(before, after string, limit int) Request {
	req := Request{Limit: limit, Direction: Forward, SortOrder: 1, Before: before, After: after}
	if limit < 1 {
		req.Limit = PageSize
	}
	switch {
	case before != "":
		req.Direction = Backward
		req.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			req.Cursor = &c
		}
	case after != "":
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			req.Cursor = &c
		}
	}
	return req
}

// FindOptions sorts by sortField then _id and fetches one extra row for look-ahead.
func (p Request) FindOptions(sortField string) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: p.SortOrder}, {Key: "_id", Value: p.SortOrder}}).
		SetLimit(int64(p.Limit + 1))
}

// Window returns the cursor condition for the query filter, or nil.
func (p Request) Window(sortField string) bson.M {
	if p.Cursor == nil {
		return nil
	}
	dir := "gt"
	if p.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, p.Cursor.CI, p.Cursor.ID)
}

// Apply adds the cursor window to filter in place.
func (p Request) Apply(filter bson.M, sortField string) {
	for k, v := range p.Window(sortField) {
		filter[k] = v
	}
}

// Finish trims the look-ahead row, restores display order when paging
// backwards and builds the cursors for the neighbouring pages.
func Finish[T any](p Request, rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) ([]T, Page) {
	var page Page
	if p.Direction == Backward {
		if len(rows) > p.Limit {
			rows = rows[:p.Limit]
			page.HasPrev = true
		}
		Reverse(rows)
		page.HasNext = true
	} else {
		if len(rows) > p.Limit {
			rows = rows[:p.Limit]
			page.HasNext = true
		}
		page.HasPrev = p.After != ""
	}
	prev, next := BuildCursors(rows, keyFn, idFn)
	if page.HasPrev {
		page.Prev = prev
	}
	if page.HasNext {
		page.Next = next
	}
	return rows, page
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors creates prev/next cursor strings from the first and last elements.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(first), idFn(first)), wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
