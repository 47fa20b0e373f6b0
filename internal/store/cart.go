package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

type CartItemInput struct {
	ItemType      models.ItemType
	ItemID        int64
	Quantity      int
	Adults        int
	Children      int
	Infants       int
	CheckInDate   *models.Date
	CheckOutDate  *models.Date
	TravelDate    *models.Date
	Configuration json.RawMessage
	Notes         string
}

// CartItemPatch carries the fields to change. Nil fields are left as they are.
type CartItemPatch struct {
	Quantity      *int
	Adults        *int
	Children      *int
	Infants       *int
	CheckInDate   *models.Date
	CheckOutDate  *models.Date
	TravelDate    *models.Date
	Configuration json.RawMessage
	Notes         *string
}

const cartColumns = `c.id, c.user_id, c.session_id, c.item_type, c.item_id, c.quantity,
	c.price_at_add, c.discounted_price_at_add, c.adults, c.children, c.infants,
	c.check_in_date, c.check_out_date, c.travel_date, c.configuration, c.notes,
	c.created_at, c.updated_at`

func scanCartItem(row interface{ Scan(...any) error }, extra ...any) (*models.CartItem, error) {
	item := &models.CartItem{}
	dest := []any{
		&item.ID,
		&item.UserID,
		&item.SessionID,
		&item.ItemType,
		&item.ItemID,
		&item.Quantity,
		&item.PriceAtAdd,
		&item.DiscountedPriceAtAdd,
		&item.Adults,
		&item.Children,
		&item.Infants,
		&item.CheckInDate,
		&item.CheckOutDate,
		&item.TravelDate,
		&item.Configuration,
		&item.Notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return item, nil
}

// ownerFilter returns the column predicate for owner bound to placeholder n.
func ownerFilter(owner models.Owner, n int) (string, any) {
	if owner.IsUser() {
		return fmt.Sprintf("c.user_id = $%d", n), owner.UserID
	}
	return fmt.Sprintf("c.session_id = $%d", n), owner.SessionID
}

func ownerArgs(owner models.Owner) (any, any) {
	if owner.IsUser() {
		return owner.UserID, nil
	}
	return nil, owner.SessionID
}

func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func AddCartItem(ctx context.Context, db *sql.DB, owner models.Owner, in CartItemInput) (*models.CartItem, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("add cart item: invalid owner")
	}

	entry, err := LookupActive(ctx, db, in.ItemType, in.ItemID)
	if err != nil {
		return nil, err
	}

	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}
	userID, sessionID := ownerArgs(owner)

	query := `
		INSERT INTO cart_items AS c (user_id, session_id, item_type, item_id, quantity,
			price_at_add, discounted_price_at_add, adults, children, infants,
			check_in_date, check_out_date, travel_date, configuration, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14::jsonb, '{}'::jsonb), $15, NOW(), NOW())
		RETURNING ` + cartColumns

	item, err := scanCartItem(db.QueryRowContext(ctx, query,
		userID, sessionID, in.ItemType, in.ItemID, quantity,
		entry.Price, entry.DiscountedPrice, in.Adults, in.Children, in.Infants,
		in.CheckInDate, in.CheckOutDate, in.TravelDate, jsonArg(in.Configuration), in.Notes))
	if err != nil {
		if database.IsForeignKeyViolation(err, "cart_items_user_id_fkey") {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	item.ItemName = entry.Name
	return item, nil
}

func UpdateCartItem(ctx context.Context, db *sql.DB, owner models.Owner, id int64, patch CartItemPatch) (*models.CartItem, error) {
	filter, ownerArg := ownerFilter(owner, 2)

	query := `
		UPDATE cart_items AS c SET
			quantity = COALESCE($3::int, c.quantity),
			adults = COALESCE($4::int, c.adults),
			children = COALESCE($5::int, c.children),
			infants = COALESCE($6::int, c.infants),
			check_in_date = COALESCE($7::date, c.check_in_date),
			check_out_date = COALESCE($8::date, c.check_out_date),
			travel_date = COALESCE($9::date, c.travel_date),
			configuration = COALESCE($10::jsonb, c.configuration),
			notes = COALESCE($11::text, c.notes),
			updated_at = NOW()
		WHERE c.id = $1 AND ` + filter + `
		RETURNING ` + cartColumns + `, ` + itemNameSQL("c")

	var name string
	item, err := scanCartItem(db.QueryRowContext(ctx, query,
		id, ownerArg,
		patch.Quantity, patch.Adults, patch.Children, patch.Infants,
		patch.CheckInDate, patch.CheckOutDate, patch.TravelDate,
		jsonArg(patch.Configuration), patch.Notes), &name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	item.ItemName = displayName(name, item.ItemType, item.ItemID)
	return item, nil
}

func RemoveCartItem(ctx context.Context, db *sql.DB, owner models.Owner, id int64) error {
	filter, ownerArg := ownerFilter(owner, 2)

	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items AS c WHERE c.id = $1 AND `+filter, id, ownerArg)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrCartItemNotFound
	}
	return nil
}

// ClearCart deletes every row of the owner and reports how many went.
func ClearCart(ctx context.Context, q database.Querier, owner models.Owner) (int64, error) {
	filter, ownerArg := ownerFilter(owner, 1)

	result, err := q.ExecContext(ctx, `DELETE FROM cart_items AS c WHERE `+filter, ownerArg)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func ListCart(ctx context.Context, db *sql.DB, owner models.Owner) (*models.Cart, error) {
	items, err := listCartItems(ctx, db, owner, false)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	return &models.Cart{Items: items, Subtotal: subtotal}, nil
}

// listCartItems loads the owner's rows with display names resolved. With
// lock set the rows are held FOR UPDATE until q's transaction ends.
func listCartItems(ctx context.Context, q database.Querier, owner models.Owner, lock bool) ([]models.CartItem, error) {
	filter, ownerArg := ownerFilter(owner, 1)

	query := `SELECT ` + cartColumns + `, ` + itemNameSQL("c") + `
		FROM cart_items AS c
		WHERE ` + filter + `
		ORDER BY c.created_at, c.id`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.QueryContext(ctx, query, ownerArg)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var name string
		item, err := scanCartItem(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.ItemName = displayName(name, item.ItemType, item.ItemID)
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// MergeGuestCart moves an anonymous session's rows to userID.
func MergeGuestCart(ctx context.Context, db *sql.DB, sessionID string, userID int64) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}

	result, err := db.ExecContext(ctx,
		`UPDATE cart_items
		 SET user_id = $1, session_id = NULL, updated_at = NOW()
		 WHERE session_id = $2`,
		userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("merge guest cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func displayName(name string, t models.ItemType, id int64) string {
	if name == "" {
		return models.FallbackLabel(t, id)
	}
	return name
}
