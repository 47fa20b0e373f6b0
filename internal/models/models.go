package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Owner scopes cart and checkout rows. Exactly one field is set.
type Owner struct {
	UserID    int64
	SessionID string
}

func (o Owner) IsUser() bool { return o.UserID != 0 }

func (o Owner) Valid() bool {
	return (o.UserID != 0) != (o.SessionID != "")
}

type CartItem struct {
	ID                   int64               `json:"id"`
	UserID               *int64              `json:"userId,omitempty"`
	SessionID            *string             `json:"sessionId,omitempty"`
	ItemType             ItemType            `json:"itemType"`
	ItemID               int64               `json:"itemId"`
	ItemName             string              `json:"itemName,omitempty"`
	Quantity             int                 `json:"quantity"`
	PriceAtAdd           decimal.Decimal     `json:"priceAtAdd"`
	DiscountedPriceAtAdd decimal.NullDecimal `json:"discountedPriceAtAdd"`
	Adults               int                 `json:"adults"`
	Children             int                 `json:"children"`
	Infants              int                 `json:"infants"`
	CheckInDate          *Date               `json:"checkInDate"`
	CheckOutDate         *Date               `json:"checkOutDate"`
	TravelDate           *Date               `json:"travelDate"`
	Configuration        json.RawMessage     `json:"configuration"`
	Notes                string              `json:"notes"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// EffectivePrice is the discounted snapshot when present, else the list snapshot.
func (c *CartItem) EffectivePrice() decimal.Decimal {
	return EffectivePrice(c.PriceAtAdd, c.DiscountedPriceAtAdd)
}

func (c *CartItem) LineTotal() decimal.Decimal {
	return LineTotal(c.EffectivePrice(), c.Quantity)
}

type Cart struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        *int64          `json:"userId,omitempty"`
	SessionID     *string         `json:"sessionId,omitempty"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	CustomerPhone string          `json:"customerPhone"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Items         []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID              int64               `json:"id"`
	OrderID         int64               `json:"orderId"`
	ItemType        ItemType            `json:"itemType"`
	ItemID          int64               `json:"itemId"`
	ItemName        string              `json:"itemName"`
	Quantity        int                 `json:"quantity"`
	Adults          int                 `json:"adults"`
	Children        int                 `json:"children"`
	Infants         int                 `json:"infants"`
	CheckInDate     *Date               `json:"checkInDate"`
	CheckOutDate    *Date               `json:"checkOutDate"`
	TravelDate      *Date               `json:"travelDate"`
	ListPrice       decimal.Decimal     `json:"listPrice"`
	UnitPrice       decimal.Decimal     `json:"unitPrice"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	Configuration   json.RawMessage     `json:"configuration"`
	Notes           string              `json:"notes"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// ShippingDetails are the customer fields captured at checkout.
type ShippingDetails struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

type Booking struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	TourID          *int64          `json:"tourId"`
	PackageID       *int64          `json:"packageId"`
	HotelID         *int64          `json:"hotelId"`
	BookingDate     Date            `json:"bookingDate"`
	Participants    int             `json:"participants"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          BookingStatus   `json:"status"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	SpecialRequests string          `json:"specialRequests"`
	ConfirmedAt     *time.Time      `json:"confirmedAt"`
	CancelledAt     *time.Time      `json:"cancelledAt"`
	CompletedAt     *time.Time      `json:"completedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (b *Booking) Remaining() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}

// Target reports which catalog entity the booking is for.
func (b *Booking) Target() (ItemType, int64) {
	switch {
	case b.TourID != nil:
		return ItemTour, *b.TourID
	case b.PackageID != nil:
		return ItemPackage, *b.PackageID
	case b.HotelID != nil:
		return ItemHotel, *b.HotelID
	}
	return "", 0
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// PaymentStatusFor derives the booking payment status from its balance.
func PaymentStatusFor(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total) && paid.IsPositive():
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	}
	if total.IsZero() && paid.IsZero() {
		return PaymentPaid
	}
	return PaymentUnpaid
}

type Payment struct {
	ID               int64           `json:"id"`
	BookingID        int64           `json:"bookingId"`
	UserID           int64           `json:"userId"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"paymentMethod"`
	TransactionID    string          `json:"transactionId"`
	Status           string          `json:"status"`
	GatewayReference *string         `json:"gatewayReference,omitempty"`
	GatewayResponse  json.RawMessage `json:"gatewayResponse,omitempty"`
	VerifiedAt       *time.Time      `json:"verifiedAt"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

const (
	PaymentRecordPending   = "pending"
	PaymentRecordCompleted = "completed"
	PaymentRecordFailed    = "failed"
)

type Review struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"bookingId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	TourID    *int64    `json:"tourId,omitempty"`
	PackageID *int64    `json:"packageId,omitempty"`
	HotelID   *int64    `json:"hotelId,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// EffectivePrice returns discounted when it is set, else price.
func EffectivePrice(price decimal.Decimal, discounted decimal.NullDecimal) decimal.Decimal {
	if discounted.Valid {
		return discounted.Decimal
	}
	return price
}

func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
