package domain

import (
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"time"
)

type Filter struct {
	Page     int
	PageSize int
}

func ValidateFilters(ev *ErrValidation, f *Filter) {
	ev.Evaluate(f.Page > 0, "page", "must be greater than zero")
	ev.Evaluate(f.Page <= 10_000_000, "page", "must be a max of 10 million")
	ev.Evaluate(f.PageSize > 0, "size", "must be greater than zero")
	ev.Evaluate(f.PageSize <= 100, "size", "must be a max of 100")
}

func (f *Filter) Limit() int {
	return f.PageSize
}

func (f *Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type Metadata struct {
	CurrentPage  int `json:"currentPage,omitempty"`
	PageSize     int `json:"pageSize,omitempty"`
	FirstPage    int `json:"firstPage,omitempty"`
	LastPage     int `json:"lastPage,omitempty"`
	TotalRecords int `json:"totalRecords,omitempty"`
}

func CalculateMetadata(totalRecords, pageSize, currentPage int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  currentPage,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

// Message history is paged with a keyset cursor over (created_at, id), ascending.

const (
	DefaultCursorSize = 50
	MaxCursorSize     = 100
)

var errMalformedCursor = errors.New("malformed cursor")

type Cursor struct {
	AfterCreatedAt *time.Time
	AfterID        string
	Size           int
}

func (c *Cursor) Limit() int {
	if c == nil || c.Size <= 0 {
		return DefaultCursorSize
	}
	return c.Size
}

// After reports whether m sorts strictly after the cursor position
func (c *Cursor) After(m *Message) bool {
	if c == nil || c.AfterCreatedAt == nil {
		return true
	}
	if cmp := m.CreatedAt.Compare(*c.AfterCreatedAt); cmp != 0 {
		return cmp > 0
	}
	return m.ID > c.AfterID
}

type CursorMetadata struct {
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// EncodeCursor returns the opaque cursor pointing right after m
func EncodeCursor(m *Message) string {
	raw := m.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + m.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor, the empty string means "from the beginning"
func DecodeCursor(s string, size int) (*Cursor, error) {
	c := &Cursor{Size: size}
	if s == "" {
		return c, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errMalformedCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, errMalformedCursor
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, errMalformedCursor
	}
	c.AfterCreatedAt = &t
	c.AfterID = id
	return c, nil
}

func ValidateCursor(ev *ErrValidation, c *Cursor) {
	ev.Evaluate(c.Size >= 0, "size", "must not be negative")
	ev.Evaluate(c.Size <= MaxCursorSize, "size", "must be a max of 100")
}

// PageMessages trims a repository result fetched with limit+1 rows into a page and its metadata
func PageMessages(msgs []*Message, limit int) ([]*Message, *CursorMetadata) {
	md := new(CursorMetadata)
	if len(msgs) > limit {
		msgs = msgs[:limit]
		md.HasMore = true
	}
	if len(msgs) > 0 {
		md.NextCursor = EncodeCursor(msgs[len(msgs)-1])
	}
	return msgs, md
}
