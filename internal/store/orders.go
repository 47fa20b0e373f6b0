package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

const maxOrderNumberAttempts = 5

const orderColumns = `id, order_number, user_id, session_id, status, total_amount,
	customer_name, customer_email, customer_phone, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.SessionID,
		&order.Status,
		&order.TotalAmount,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

// CreateOrderFromCart converts the owner's cart into an order in a single
// transaction. The cart rows are locked, snapshotted into order_items and
// deleted. On any error nothing is written and the cart is untouched.
func CreateOrderFromCart(ctx context.Context, db *sql.DB, owner models.Owner, ship models.ShippingDetails) (*models.Order, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("create order: invalid owner")
	}

	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		items, err := listCartItems(ctx, tx, owner, true)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if len(items) == 0 {
			return database.ErrEmptyCart
		}

		total := decimal.Zero
		for i := range items {
			total = total.Add(items[i].LineTotal())
		}

		order, err = insertOrder(ctx, tx, owner, ship, total)
		if err != nil {
			return err
		}

		order.Items = make([]models.OrderItem, 0, len(items))
		for i := range items {
			oi, err := insertOrderItem(ctx, tx, order.ID, &items[i])
			if err != nil {
				return err
			}
			order.Items = append(order.Items, *oi)
		}

		if _, err := ClearCart(ctx, tx, owner); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// insertOrder allocates a unique order number, regenerating on collision.
func insertOrder(ctx context.Context, tx *sql.Tx, owner models.Owner, ship models.ShippingDetails, total decimal.Decimal) (*models.Order, error) {
	userID, sessionID := ownerArgs(owner)

	query := `
		INSERT INTO orders (order_number, user_id, session_id, status, total_amount,
			customer_name, customer_email, customer_phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (order_number) DO NOTHING
		RETURNING ` + orderColumns

	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order, err := scanOrder(tx.QueryRowContext(ctx, query,
			newOrderNumber(), userID, sessionID, models.OrderStatusPending, total,
			ship.CustomerName, ship.CustomerEmail, ship.CustomerPhone, ship.Notes))
		if err == nil {
			return order, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	return nil, database.ErrOrderNumberExhausted
}

func insertOrderItem(ctx context.Context, tx *sql.Tx, orderID int64, c *models.CartItem) (*models.OrderItem, error) {
	unit := c.EffectivePrice()
	oi := &models.OrderItem{
		OrderID:         orderID,
		ItemType:        c.ItemType,
		ItemID:          c.ItemID,
		ItemName:        c.ItemName,
		Quantity:        c.Quantity,
		Adults:          c.Adults,
		Children:        c.Children,
		Infants:         c.Infants,
		CheckInDate:     c.CheckInDate,
		CheckOutDate:    c.CheckOutDate,
		TravelDate:      c.TravelDate,
		ListPrice:       c.PriceAtAdd,
		UnitPrice:       unit,
		DiscountedPrice: c.DiscountedPriceAtAdd,
		TotalPrice:      models.LineTotal(unit, c.Quantity),
		Configuration:   c.Configuration,
		Notes:           c.Notes,
	}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, item_type, item_id, item_name, quantity,
			adults, children, infants, check_in_date, check_out_date, travel_date,
			list_price, unit_price, discounted_price, total_price, configuration, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, COALESCE($16::jsonb, '{}'::jsonb), $17, NOW())
		 RETURNING id, created_at`,
		oi.OrderID, oi.ItemType, oi.ItemID, oi.ItemName, oi.Quantity,
		oi.Adults, oi.Children, oi.Infants, oi.CheckInDate, oi.CheckOutDate, oi.TravelDate,
		oi.ListPrice, oi.UnitPrice, oi.DiscountedPrice, oi.TotalPrice, jsonArg(oi.Configuration), oi.Notes,
	).Scan(&oi.ID, &oi.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	return oi, nil
}

func GetOrderByNumber(ctx context.Context, db *sql.DB, orderNumber string) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Items, err = listOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func listOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, item_type, item_id, item_name, quantity, adults, children, infants,
			check_in_date, check_out_date, travel_date, list_price, unit_price, discounted_price,
			total_price, configuration, notes, created_at
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemType,
			&item.ItemID,
			&item.ItemName,
			&item.Quantity,
			&item.Adults,
			&item.Children,
			&item.Infants,
			&item.CheckInDate,
			&item.CheckOutDate,
			&item.TravelDate,
			&item.ListPrice,
			&item.UnitPrice,
			&item.DiscountedPrice,
			&item.TotalPrice,
			&item.Configuration,
			&item.Notes,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListOrdersCursor pages a user's orders newest first without items.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	_, limit = NormalizePage(1, limit)

	c, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		   AND (created_at, id) < ($2, $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		userID, c.CreatedAt, c.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
