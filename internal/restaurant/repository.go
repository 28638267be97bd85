package restaurant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound      = errors.New("restaurant not found")
	ErrAlreadyExists = errors.New("user restaurant already exists")
)

type Repository interface {
	Create(ctx context.Context, r *Restaurant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Restaurant, error)
	Update(ctx context.Context, r *Restaurant) error
	CountByCity(ctx context.Context, city string) (int, error)
	// Search returns one page of matches and the total number of matches.
	Search(ctx context.Context, params SearchParams) ([]Restaurant, int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const restaurantColumns = `id, user_id, restaurant_name, city, country, delivery_price, estimated_delivery_time, cuisines, image_url, last_updated`

var sortColumns = map[string]string{
	SortLastUpdated:           "last_updated",
	SortDeliveryPrice:         "delivery_price",
	SortEstimatedDeliveryTime: "estimated_delivery_time",
}

func (r *postgresRepository) Create(ctx context.Context, rest *Restaurant) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("restaurant_id", rest.ID).Msg("repository: failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	query := `
		INSERT INTO restaurants (` + restaurantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, query,
		rest.ID,
		rest.UserID,
		rest.RestaurantName,
		rest.City,
		rest.Country,
		rest.DeliveryPrice,
		rest.EstimatedDeliveryTime,
		rest.Cuisines,
		rest.ImageURL,
		rest.LastUpdated,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("repository: failed to insert restaurant: %w", err)
	}

	return insertMenuItems(ctx, tx, rest.ID, rest.MenuItems)
}

func insertMenuItems(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, items []MenuItem) error {
	query := `
		INSERT INTO menu_items (id, restaurant_id, name, price, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, item := range items {
		if _, err := tx.Exec(ctx, query, item.ID, restaurantID, item.Name, item.Price, i); err != nil {
			return fmt.Errorf("repository: failed to insert menu item for restaurant %s: %w", restaurantID, err)
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	return r.getOne(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id)
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Restaurant, error) {
	return r.getOne(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE user_id = $1`, userID)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg uuid.UUID) (*Restaurant, error) {
	rest, err := scanRestaurant(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select restaurant by %s: %w", arg, err)
	}

	items, err := r.menuItems(ctx, []uuid.UUID{rest.ID})
	if err != nil {
		return nil, err
	}
	rest.MenuItems = items[rest.ID]
	if rest.MenuItems == nil {
		rest.MenuItems = []MenuItem{}
	}

	return rest, nil
}

func scanRestaurant(row pgx.Row) (*Restaurant, error) {
	var rest Restaurant
	err := row.Scan(
		&rest.ID,
		&rest.UserID,
		&rest.RestaurantName,
		&rest.City,
		&rest.Country,
		&rest.DeliveryPrice,
		&rest.EstimatedDeliveryTime,
		&rest.Cuisines,
		&rest.ImageURL,
		&rest.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *postgresRepository) menuItems(ctx context.Context, restaurantIDs []uuid.UUID) (map[uuid.UUID][]MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, price
		FROM menu_items
		WHERE restaurant_id = ANY($1)
		ORDER BY position
	`
	rows, err := r.db.Query(ctx, query, restaurantIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]MenuItem, len(restaurantIDs))
	for rows.Next() {
		var (
			item         MenuItem
			restaurantID uuid.UUID
		)
		if err := rows.Scan(&item.ID, &restaurantID, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("repository: failed to scan menu item: %w", err)
		}
		result[restaurantID] = append(result[restaurantID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating menu items: %w", err)
	}

	return result, nil
}

func (r *postgresRepository) Update(ctx context.Context, rest *Restaurant) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("restaurant_id", rest.ID).Msg("repository: failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	query := `
		UPDATE restaurants
		SET restaurant_name = $1, city = $2, country = $3, delivery_price = $4,
		    estimated_delivery_time = $5, cuisines = $6, image_url = $7, last_updated = $8
		WHERE id = $9
	`
	cmdTag, err := tx.Exec(ctx, query,
		rest.RestaurantName,
		rest.City,
		rest.Country,
		rest.DeliveryPrice,
		rest.EstimatedDeliveryTime,
		rest.Cuisines,
		rest.ImageURL,
		rest.LastUpdated,
		rest.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update restaurant %s: %w", rest.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err = tx.Exec(ctx, `DELETE FROM menu_items WHERE restaurant_id = $1`, rest.ID); err != nil {
		return fmt.Errorf("repository: failed to clear menu items for restaurant %s: %w", rest.ID, err)
	}

	return insertMenuItems(ctx, tx, rest.ID, rest.MenuItems)
}

func (r *postgresRepository) CountByCity(ctx context.Context, city string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM restaurants WHERE city ILIKE $1`, containsPattern(city)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count restaurants in city %q: %w", city, err)
	}
	return count, nil
}

func (r *postgresRepository) Search(ctx context.Context, params SearchParams) ([]Restaurant, int, error) {
	where, args := buildSearchFilter(params)

	var total int
	countQuery := `SELECT COUNT(*) FROM restaurants WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count search results: %w", err)
	}

	sortColumn, ok := sortColumns[params.SortOption]
	if !ok {
		sortColumn = sortColumns[SortLastUpdated]
	}

	args = append(args, PageSize, PageSize*(params.Page-1))
	query := fmt.Sprintf(`
		SELECT %s FROM restaurants
		WHERE %s
		ORDER BY %s ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, restaurantColumns, where, sortColumn, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to search restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]Restaurant, 0, PageSize)
	var ids []uuid.UUID
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, *rest)
		ids = append(ids, rest.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating restaurants: %w", err)
	}

	if len(ids) == 0 {
		return restaurants, total, nil
	}

	items, err := r.menuItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range restaurants {
		restaurants[i].MenuItems = items[restaurants[i].ID]
		if restaurants[i].MenuItems == nil {
			restaurants[i].MenuItems = []MenuItem{}
		}
	}

	return restaurants, total, nil
}

// buildSearchFilter mirrors the case-insensitive substring matching the
// restaurant search has always used: city must match, every selected cuisine
// must match one of the restaurant's cuisines, and the free-text query may
// match either the name or a cuisine.
func buildSearchFilter(params SearchParams) (string, []any) {
	conditions := []string{"city ILIKE $1"}
	args := []any{containsPattern(params.City)}

	for _, cuisine := range params.Cuisines {
		args = append(args, containsPattern(cuisine))
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE c ILIKE $%d)", len(args)))
	}

	if params.SearchQuery != "" {
		args = append(args, containsPattern(params.SearchQuery))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(restaurant_name ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE c ILIKE $%d))", n, n))
	}

	return strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
