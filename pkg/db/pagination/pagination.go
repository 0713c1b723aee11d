package pagination

import (
	"encoding/base64"
	"encoding/json"

	"gorm.io/gorm"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=20" validate:"gte=1,lte=250"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// Apply limits a statement to size+1 rows so callers can detect another page.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	size := p.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 250 {
		size = 250
	}
	return stmt.Limit(size + 1)
}

// Trim cuts an over-fetched result down to the page size and reports whether
// more rows exist.
func Trim[T any](items []T, size int) ([]T, bool) {
	if size <= 0 {
		size = 20
	}
	if len(items) > size {
		return items[:size], true
	}
	return items, false
}
