package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

var testShipping = models.ShippingDetails{
	CustomerName:  "Test Customer",
	CustomerEmail: "customer@example.com",
	CustomerPhone: "+971500000000",
}

func TestCreateOrderFromCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := models.Owner{SessionID: "checkout-guest"}
	tourID := createTestTour(t, db, "City Tour", 100, 80)

	if _, err := AddCartItem(ctx, db, owner, CartItemInput{
		ItemType: models.ItemTour,
		ItemID:   tourID,
		Quantity: 2,
		Adults:   2,
	}); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	order, err := CreateOrderFromCart(ctx, db, owner, testShipping)
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if !strings.HasPrefix(order.OrderNumber, "SJ") {
		t.Errorf("Expected order number prefix SJ, got %q", order.OrderNumber)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(160)) {
		t.Errorf("Expected total 160, got %s", order.TotalAmount)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", order.Status)
	}
	if len(order.Items) != 1 {
		t.Fatalf("Expected 1 order item, got %d", len(order.Items))
	}

	oi := order.Items[0]
	if !oi.UnitPrice.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected unit price 80, got %s", oi.UnitPrice)
	}
	if !oi.ListPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected list price 100, got %s", oi.ListPrice)
	}
	if !oi.TotalPrice.Equal(decimal.NewFromInt(160)) {
		t.Errorf("Expected line total 160, got %s", oi.TotalPrice)
	}
	if oi.ItemName != "City Tour" {
		t.Errorf("Expected item name City Tour, got %q", oi.ItemName)
	}

	cart, err := ListCart(ctx, db, owner)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("Expected cart to be empty after checkout, got %d items", len(cart.Items))
	}

	fetched, err := GetOrderByNumber(ctx, db, order.OrderNumber)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(fetched.Items) != 1 || !fetched.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("Fetched order does not match created order: %+v", fetched)
	}
}

func TestOrderItemsSurviveCatalogChanges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := models.Owner{SessionID: "snapshot-guest"}
	tourID := createTestTour(t, db, "Desert Safari", 100, 80)

	if _, err := AddCartItem(ctx, db, owner, CartItemInput{
		ItemType: models.ItemTour,
		ItemID:   tourID,
		Quantity: 2,
		Adults:   2,
	}); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	order, err := CreateOrderFromCart(ctx, db, owner, testShipping)
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if _, err := db.Exec(`UPDATE tours SET name = 'Renamed', price = 900, discounted_price = NULL WHERE id = $1`, tourID); err != nil {
		t.Fatalf("Update tour: %v", err)
	}
	assertOrderSnapshot(t, db, order.OrderNumber)

	if _, err := db.Exec(`DELETE FROM tours WHERE id = $1`, tourID); err != nil {
		t.Fatalf("Delete tour: %v", err)
	}
	assertOrderSnapshot(t, db, order.OrderNumber)
}

func assertOrderSnapshot(t *testing.T, db *sql.DB, orderNumber string) {
	t.Helper()

	fetched, err := GetOrderByNumber(context.Background(), db, orderNumber)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if !fetched.TotalAmount.Equal(decimal.NewFromInt(160)) {
		t.Errorf("Expected order total 160, got %s", fetched.TotalAmount)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("Expected 1 order item, got %d", len(fetched.Items))
	}

	oi := fetched.Items[0]
	if oi.ItemName != "Desert Safari" {
		t.Errorf("Expected item name Desert Safari, got %q", oi.ItemName)
	}
	if !oi.ListPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected list price 100, got %s", oi.ListPrice)
	}
	if !oi.UnitPrice.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected unit price 80, got %s", oi.UnitPrice)
	}
	if !oi.TotalPrice.Equal(decimal.NewFromInt(160)) {
		t.Errorf("Expected line total 160, got %s", oi.TotalPrice)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := CreateOrderFromCart(context.Background(), db, models.Owner{SessionID: "nobody"}, testShipping)
	if !errors.Is(err, database.ErrEmptyCart) {
		t.Errorf("Expected empty cart error, got: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no orders, got %d", count)
	}
}

func TestCreateOrderRegeneratesCollidingNumber(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tourID := createTestTour(t, db, "Collision Tour", 10, 0)

	numbers := []string{"SJ1-AAAAAA", "SJ1-AAAAAA", "SJ1-BBBBBB"}
	orig := newOrderNumber
	defer func() { newOrderNumber = orig }()
	next := 0
	newOrderNumber = func() string {
		n := numbers[next]
		next++
		return n
	}

	first := models.Owner{SessionID: "first"}
	second := models.Owner{SessionID: "second"}
	for _, owner := range []models.Owner{first, second} {
		if _, err := AddCartItem(ctx, db, owner, CartItemInput{ItemType: models.ItemTour, ItemID: tourID}); err != nil {
			t.Fatalf("Add cart item: %v", err)
		}
	}

	a, err := CreateOrderFromCart(ctx, db, first, testShipping)
	if err != nil {
		t.Fatalf("Create first order: %v", err)
	}
	b, err := CreateOrderFromCart(ctx, db, second, testShipping)
	if err != nil {
		t.Fatalf("Create second order: %v", err)
	}

	if a.OrderNumber != "SJ1-AAAAAA" || b.OrderNumber != "SJ1-BBBBBB" {
		t.Errorf("Expected SJ1-AAAAAA and SJ1-BBBBBB, got %s and %s", a.OrderNumber, b.OrderNumber)
	}
}

func TestCreateOrderNumberExhausted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tourID := createTestTour(t, db, "Exhausted Tour", 10, 0)

	orig := newOrderNumber
	defer func() { newOrderNumber = orig }()
	newOrderNumber = func() string { return "SJ1-SAME00" }

	first := models.Owner{SessionID: "one"}
	second := models.Owner{SessionID: "two"}
	for _, owner := range []models.Owner{first, second} {
		if _, err := AddCartItem(ctx, db, owner, CartItemInput{ItemType: models.ItemTour, ItemID: tourID}); err != nil {
			t.Fatalf("Add cart item: %v", err)
		}
	}

	if _, err := CreateOrderFromCart(ctx, db, first, testShipping); err != nil {
		t.Fatalf("Create first order: %v", err)
	}
	_, err := CreateOrderFromCart(ctx, db, second, testShipping)
	if !errors.Is(err, database.ErrOrderNumberExhausted) {
		t.Errorf("Expected order number exhausted, got: %v", err)
	}

	cart, err := ListCart(ctx, db, second)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Errorf("Expected cart untouched after failed checkout, got %d items", len(cart.Items))
	}
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "pager")
	owner := models.Owner{UserID: user.ID}
	tourID := createTestTour(t, db, "Paging Tour", 10, 0)

	for i := 0; i < 15; i++ {
		if _, err := AddCartItem(ctx, db, owner, CartItemInput{ItemType: models.ItemTour, ItemID: tourID}); err != nil {
			t.Fatalf("Add cart item: %v", err)
		}
		if _, err := CreateOrderFromCart(ctx, db, owner, testShipping); err != nil {
			t.Fatalf("Create order: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	page1, err := ListOrdersCursor(ctx, db, user.ID, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}
	orders1 := page1.Items.([]models.Order)
	if len(orders1) != 10 {
		t.Errorf("Expected 10 orders on page 1, got %d", len(orders1))
	}
	if !page1.HasMore || page1.NextCursor == "" {
		t.Fatal("Expected page 1 to have more results")
	}

	page2, err := ListOrdersCursor(ctx, db, user.ID, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}
	orders2 := page2.Items.([]models.Order)
	if len(orders2) != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", len(orders2))
	}
	if page2.HasMore {
		t.Error("Expected page 2 to be the last page")
	}

	seen := make(map[int64]bool)
	for _, o := range append(orders1, orders2...) {
		if seen[o.ID] {
			t.Errorf("Order %d appears on more than one page", o.ID)
		}
		seen[o.ID] = true
	}
}
