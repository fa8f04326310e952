package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLimitPlusOne(t *testing.T) {
	if got := LimitPlusOne(20); got != 21 {
		t.Errorf("LimitPlusOne(20) = %d, want 21", got)
	}
}

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name string
		n    int
		def  int
		want int
	}{
		{"zero uses default", 0, 20, 20},
		{"negative uses default", -5, 20, 20},
		{"within range", 50, 20, 50},
		{"one", 1, 20, 1},
		{"above max", 500, 20, MaxPageSize},
		{"bad default falls back", 0, 0, DefaultPageSize},
		{"oversized default falls back", 0, 1000, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPageSize(tt.n, tt.def); got != tt.want {
				t.Errorf("ClampPageSize(%d, %d) = %d, want %d", tt.n, tt.def, got, tt.want)
			}
		})
	}
}

func TestParsePageSize(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"page_size=10", 10},
		{"page_size=abc", 0},
		{"page_size=-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/x?"+tt.query, nil)
			if got := ParsePageSize(r); got != tt.want {
				t.Errorf("ParsePageSize(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name     string
		rows     []int
		size     int
		wantLen  int
		wantMore bool
	}{
		{"short page", []int{1, 2, 3}, 5, 3, false},
		{"exact page", []int{1, 2, 3}, 3, 3, false},
		{"look-ahead row present", []int{1, 2, 3, 4}, 3, 3, true},
		{"empty", nil, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tt.rows
			more := TrimPage(&rows, tt.size)
			if more != tt.wantMore {
				t.Errorf("hasMore = %v, want %v", more, tt.wantMore)
			}
			if len(rows) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(rows), tt.wantLen)
			}
		})
	}
}

func TestTrimPageKeepsNewest(t *testing.T) {
	// Newest-first fetch: the extra row is the oldest and must be dropped.
	rows := []string{"m5", "m4", "m3", "m2"}
	TrimPage(&rows, 3)
	Reverse(rows)
	want := []string{"m3", "m4", "m5"}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("rows = %v, want %v", rows, want)
		}
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"empty", []int{}, []int{}},
		{"single", []int{1}, []int{1}},
		{"even", []int{1, 2, 3, 4}, []int{4, 3, 2, 1}},
		{"odd", []int{1, 2, 3}, []int{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reverse(tt.input)
			for i := range tt.want {
				if tt.input[i] != tt.want[i] {
					t.Errorf("Reverse() = %v, want %v", tt.input, tt.want)
					break
				}
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC),
		ID:        primitive.NewObjectID(),
	}
	got, ok := DecodeCursor(c.Encode())
	if !ok {
		t.Fatal("DecodeCursor failed on an encoded cursor")
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, c.CreatedAt)
	}
	if got.ID != c.ID {
		t.Errorf("ID = %v, want %v", got.ID, c.ID)
	}
}

func TestCursorTruncatesToMillis(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 123_456_789, time.UTC),
		ID:        primitive.NewObjectID(),
	}
	got, ok := DecodeCursor(c.Encode())
	if !ok {
		t.Fatal("DecodeCursor failed")
	}
	want := c.CreatedAt.Truncate(time.Millisecond)
	if !got.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
	}
}

func TestDecodeCursor_Malformed(t *testing.T) {
	for _, s := range []string{"", "garbage", "!!!not-base64!!!"} {
		if _, ok := DecodeCursor(s); ok {
			t.Errorf("DecodeCursor(%q) should fail", s)
		}
	}
}

func TestOlderThan(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := primitive.NewObjectID()
	f := Cursor{CreatedAt: ts, ID: id}.OlderThan()

	or, ok := f["$or"].([]bson.M)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or with two clauses, got %v", f)
	}
	if lt := or[0]["created_at"].(bson.M)["$lt"]; lt != ts {
		t.Errorf("first clause $lt = %v, want %v", lt, ts)
	}
	if or[1]["created_at"] != ts {
		t.Errorf("tie clause created_at = %v, want %v", or[1]["created_at"], ts)
	}
	if lt := or[1]["_id"].(bson.M)["$lt"]; lt != id {
		t.Errorf("tie clause _id $lt = %v, want %v", lt, id)
	}
}
