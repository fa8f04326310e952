// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPageSize is the number of chat messages returned when the caller
// does not ask for a specific size.
const DefaultPageSize = 20

// MaxPageSize caps caller-requested page sizes.
const MaxPageSize = 100

// ClampPageSize returns n limited to [1, MaxPageSize]; values <= 0 become def.
func ClampPageSize(n, def int) int {
	if def <= 0 || def > MaxPageSize {
		def = DefaultPageSize
	}
	if n <= 0 {
		return def
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// ParsePageSize reads the "page_size" query parameter. Missing or invalid
// values yield 0, which ClampPageSize turns into the default.
func ParsePageSize(r *http.Request) int {
	s := query.Get(r, "page_size")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// LimitPlusOne returns pageSize+1 as int64 for look-ahead pagination
// (fetch one extra document to detect that more rows exist).
func LimitPlusOne(pageSize int) int64 { return int64(pageSize + 1) }

// TrimPage cuts a look-ahead fetch back to pageSize and reports whether the
// extra row was present.
func TrimPage[T any](rows *[]T, pageSize int) (hasMore bool) {
	if len(*rows) > pageSize {
		*rows = (*rows)[:pageSize]
		return true
	}
	return false
}

// Reverse reverses a slice in place. Use this after fetching newest-first
// to restore chronological order.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// Cursor marks a position in a (created_at, _id) ordered collection.
type Cursor struct {
	CreatedAt time.Time
	ID        primitive.ObjectID
}

// Encode returns the opaque wire form of c. Time is kept at millisecond
// precision, which is what MongoDB stores.
func (c Cursor) Encode() string {
	return wafflemongo.EncodeCursor(strconv.FormatInt(c.CreatedAt.UnixMilli(), 10), c.ID)
}

// DecodeCursor parses a cursor produced by Cursor.Encode.
func DecodeCursor(s string) (Cursor, bool) {
	wc, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return Cursor{}, false
	}
	ms, err := strconv.ParseInt(wc.CI, 10, 64)
	if err != nil || wc.ID.IsZero() {
		return Cursor{}, false
	}
	return Cursor{CreatedAt: time.UnixMilli(ms).UTC(), ID: wc.ID}, true
}

// OlderThan returns the filter clause selecting rows strictly before c in
// (created_at, _id) order.
func (c Cursor) OlderThan() bson.M {
	return bson.M{"$or": []bson.M{
		{"created_at": bson.M{"$lt": c.CreatedAt}},
		{"created_at": c.CreatedAt, "_id": bson.M{"$lt": c.ID}},
	}}
}

// NewestFirst is the sort used for history queries.
func NewestFirst() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}
