package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Product is a read-only catalog snapshot used for one request
type Product struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Slug           string         `json:"slug,omitempty" db:"slug"`
	Description    string         `json:"description,omitempty" db:"description"`
	Brand          string         `json:"brand" db:"brand"`
	Price          float64        `json:"price" db:"price"`
	Stock          int            `json:"stock" db:"stock"`
	CategoryID     string         `json:"category_id" db:"category_id"`
	SubcategoryID  string         `json:"subcategory_id,omitempty" db:"subcategory_id"`
	CategoryPath   string         `json:"category_path" db:"category_path"`
	Specifications Specifications `json:"specifications" db:"specifications"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// ScoredProduct is a product with its ranking details
type ScoredProduct struct {
	Product
	Slot           string   `json:"slot"`
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}

// Specifications is a JSONB object flattened to string values
type Specifications map[string]string

// Value implements driver.Valuer interface
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface. Non-string JSON values are
// rendered as text so numbers and booleans stay displayable.
func (s *Specifications) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported specifications type %T", value)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Specifications, len(raw))
	for k, v := range raw {
		out[k] = specString(v)
	}
	*s = out
	return nil
}

func specString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Category is a catalog category row
type Category struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Slug     string  `json:"slug" db:"slug"`
	ParentID *string `json:"parent_id,omitempty" db:"parent_id"`
}
