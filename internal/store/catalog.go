package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-travel-store/internal/database"
	"github.com/safar/go-travel-store/internal/models"
)

type catalogTable struct {
	table string
	name  string
}

var catalogTables = map[models.ItemType]catalogTable{
	models.ItemTour:    {table: "tours", name: "name"},
	models.ItemPackage: {table: "packages", name: "title"},
	models.ItemHotel:   {table: "hotels", name: "name"},
	models.ItemRoom:    {table: "rooms", name: "name"},
	models.ItemVisa:    {table: "visas", name: "country"},
}

// itemNameSQL resolves the current display name for rows carrying
// item_type/item_id columns under alias. Missing rows yield ''.
func itemNameSQL(alias string) string {
	return fmt.Sprintf(`COALESCE(CASE %[1]s.item_type
		WHEN 'tour' THEN (SELECT name FROM tours WHERE id = %[1]s.item_id)
		WHEN 'package' THEN (SELECT title FROM packages WHERE id = %[1]s.item_id)
		WHEN 'hotel' THEN (SELECT name FROM hotels WHERE id = %[1]s.item_id)
		WHEN 'room' THEN (SELECT name FROM rooms WHERE id = %[1]s.item_id)
		WHEN 'visa' THEN (SELECT country FROM visas WHERE id = %[1]s.item_id)
	END, '')`, alias)
}

// Lookup returns the pricing view of a catalog row, active or not.
func Lookup(ctx context.Context, q database.Querier, itemType models.ItemType, id int64) (*models.CatalogEntry, error) {
	t, ok := catalogTables[itemType]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", itemType, database.ErrCatalogNotFound)
	}

	entry := &models.CatalogEntry{Type: itemType, ID: id}
	query := fmt.Sprintf(`SELECT %s, price, discounted_price, active FROM %s WHERE id = $1`, t.name, t.table)

	err := q.QueryRowContext(ctx, query, id).Scan(
		&entry.Name,
		&entry.Price,
		&entry.DiscountedPrice,
		&entry.Active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("lookup %s: %w", itemType, err)
	}

	return entry, nil
}

// LookupActive is Lookup that treats inactive rows as missing.
func LookupActive(ctx context.Context, q database.Querier, itemType models.ItemType, id int64) (*models.CatalogEntry, error) {
	entry, err := Lookup(ctx, q, itemType, id)
	if err != nil {
		return nil, err
	}
	if !entry.Active {
		return nil, database.ErrCatalogNotFound
	}
	return entry, nil
}

func scanTour(rows *sql.Rows) (models.Tour, error) {
	var t models.Tour
	err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DurationDays, &t.Price, &t.DiscountedPrice, &t.Active, &t.CreatedAt)
	if err != nil {
		return t, fmt.Errorf("scan tour: %w", err)
	}
	return t, nil
}

func ListTours(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	return listOffset(ctx, db,
		`SELECT COUNT(*) FROM tours WHERE active`,
		`SELECT id, name, description, duration_days, price, discounted_price, active, created_at
		 FROM tours WHERE active
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		nil, page, pageSize, scanTour)
}

func GetTour(ctx context.Context, db *sql.DB, id int64) (*models.Tour, error) {
	var t models.Tour
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, duration_days, price, discounted_price, active, created_at
		 FROM tours WHERE id = $1 AND active`, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.DurationDays, &t.Price, &t.DiscountedPrice, &t.Active, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return &t, nil
}

func scanPackage(rows *sql.Rows) (models.Package, error) {
	var p models.Package
	err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.DurationDays, &p.Price, &p.DiscountedPrice, &p.Active, &p.CreatedAt)
	if err != nil {
		return p, fmt.Errorf("scan package: %w", err)
	}
	return p, nil
}

func ListPackages(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	return listOffset(ctx, db,
		`SELECT COUNT(*) FROM packages WHERE active`,
		`SELECT id, title, description, duration_days, price, discounted_price, active, created_at
		 FROM packages WHERE active
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		nil, page, pageSize, scanPackage)
}

func GetPackage(ctx context.Context, db *sql.DB, id int64) (*models.Package, error) {
	var p models.Package
	err := db.QueryRowContext(ctx,
		`SELECT id, title, description, duration_days, price, discounted_price, active, created_at
		 FROM packages WHERE id = $1 AND active`, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.DurationDays, &p.Price, &p.DiscountedPrice, &p.Active, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return &p, nil
}

func scanHotel(rows *sql.Rows) (models.Hotel, error) {
	var h models.Hotel
	err := rows.Scan(&h.ID, &h.Name, &h.Description, &h.Stars, &h.Price, &h.DiscountedPrice, &h.Active, &h.CreatedAt)
	if err != nil {
		return h, fmt.Errorf("scan hotel: %w", err)
	}
	return h, nil
}

func ListHotels(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	return listOffset(ctx, db,
		`SELECT COUNT(*) FROM hotels WHERE active`,
		`SELECT id, name, description, stars, price, discounted_price, active, created_at
		 FROM hotels WHERE active
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		nil, page, pageSize, scanHotel)
}

func GetHotel(ctx context.Context, db *sql.DB, id int64) (*models.Hotel, error) {
	var h models.Hotel
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, stars, price, discounted_price, active, created_at
		 FROM hotels WHERE id = $1 AND active`, id).Scan(
		&h.ID, &h.Name, &h.Description, &h.Stars, &h.Price, &h.DiscountedPrice, &h.Active, &h.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCatalogNotFound
		}
		return nil, fmt.Errorf("get hotel: %w", err)
	}
	return &h, nil
}

// ListRooms returns the active rooms of an active hotel.
func ListRooms(ctx context.Context, db *sql.DB, hotelID int64) ([]models.Room, error) {
	if _, err := GetHotel(ctx, db, hotelID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, hotel_id, name, description, max_occupancy, price, discounted_price, active, created_at
		 FROM rooms
		 WHERE hotel_id = $1 AND active
		 ORDER BY id`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var r models.Room
		err := rows.Scan(&r.ID, &r.HotelID, &r.Name, &r.Description, &r.MaxOccupancy,
			&r.Price, &r.DiscountedPrice, &r.Active, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func scanVisa(rows *sql.Rows) (models.Visa, error) {
	var v models.Visa
	err := rows.Scan(&v.ID, &v.Country, &v.Description, &v.ProcessingDays, &v.Price, &v.DiscountedPrice, &v.Active, &v.CreatedAt)
	if err != nil {
		return v, fmt.Errorf("scan visa: %w", err)
	}
	return v, nil
}

func ListVisas(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	return listOffset(ctx, db,
		`SELECT COUNT(*) FROM visas WHERE active`,
		`SELECT id, country, description, processing_days, price, discounted_price, active, created_at
		 FROM visas WHERE active
		 ORDER BY country, id
		 LIMIT $1 OFFSET $2`,
		nil, page, pageSize, scanVisa)
}
