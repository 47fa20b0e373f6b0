package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemPackage ItemType = "package"
	ItemTour    ItemType = "tour"
	ItemHotel   ItemType = "hotel"
	ItemRoom    ItemType = "room"
	ItemVisa    ItemType = "visa"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemPackage, ItemTour, ItemHotel, ItemRoom, ItemVisa:
		return true
	}
	return false
}

// FallbackLabel is the display name used when the catalog row is gone.
func FallbackLabel(t ItemType, id int64) string {
	return fmt.Sprintf("%s #%d", t, id)
}

// CatalogEntry is the pricing view of any catalog row.
type CatalogEntry struct {
	Type            ItemType
	ID              int64
	Name            string
	Price           decimal.Decimal
	DiscountedPrice decimal.NullDecimal
	Active          bool
}

func (e *CatalogEntry) EffectivePrice() decimal.Decimal {
	return EffectivePrice(e.Price, e.DiscountedPrice)
}

type Tour struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	DurationDays    int                 `json:"durationDays"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type Package struct {
	ID              int64               `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	DurationDays    int                 `json:"durationDays"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type Hotel struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Stars           int                 `json:"stars"`
	Price           decimal.Decimal     `json:"pricePerNight"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type Room struct {
	ID              int64               `json:"id"`
	HotelID         int64               `json:"hotelId"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	MaxOccupancy    int                 `json:"maxOccupancy"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type Visa struct {
	ID              int64               `json:"id"`
	Country         string              `json:"country"`
	Description     string              `json:"description"`
	ProcessingDays  int                 `json:"processingDays"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"createdAt"`
}

const dateLayout = "2006-01-02"

// Date is a calendar day stored in a DATE column and sent as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// accept full timestamps from older clients
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q", s)
		}
	}
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}
