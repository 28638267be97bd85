package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict means the order was no longer in the expected status
	// when the update was applied.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListByUserID and ListByRestaurantID return newest orders first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]Order, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in from. A nil totalAmount leaves the stored amount untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, totalAmount *float64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, restaurant_id, user_id, delivery_details, cart_items, total_amount, status, checkout_session_id, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	deliveryDetails, err := json.Marshal(o.DeliveryDetails)
	if err != nil {
		return fmt.Errorf("repository: failed to encode delivery details: %w", err)
	}
	cartItems, err := json.Marshal(o.CartItems)
	if err != nil {
		return fmt.Errorf("repository: failed to encode cart items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Exec(ctx, query,
		o.ID,
		o.RestaurantID,
		o.UserID,
		deliveryDetails,
		cartItems,
		o.TotalAmount,
		string(o.Status),
		o.CheckoutSessionID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order %s: %w", o.ID, err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	return o, nil
}

func (r *postgresRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepository) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE restaurant_id = $1 ORDER BY created_at DESC`, restaurantID)
}

func (r *postgresRepository) list(ctx context.Context, query string, arg uuid.UUID) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error().Err(err).Msg("repository: failed to scan order row")
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order rows: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o               Order
		status          string
		deliveryDetails []byte
		cartItems       []byte
	)
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.UserID,
		&deliveryDetails,
		&cartItems,
		&o.TotalAmount,
		&status,
		&o.CheckoutSessionID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(deliveryDetails, &o.DeliveryDetails); err != nil {
		return nil, fmt.Errorf("decode delivery details: %w", err)
	}
	if err := json.Unmarshal(cartItems, &o.CartItems); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	o.Status = Status(status)

	return &o, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, totalAmount *float64) error {
	query := `
		UPDATE orders
		SET status = $1, total_amount = COALESCE($2, total_amount), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, string(to), totalAmount, id, string(from))
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}
