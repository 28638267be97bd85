package order_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
	"github.com/vasiliy-maslov/food-ordering/internal/db"
	"github.com/vasiliy-maslov/food-ordering/internal/order"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	if host := os.Getenv("DB_HOST_TEST"); host != "" {
		cfg := config.PostgresConfig{
			Host:            host,
			Port:            envOr("DB_PORT_TEST", "5432"),
			User:            envOr("DB_USER_TEST", "postgres"),
			Password:        envOr("DB_PASSWORD_TEST", "postgres"),
			DBName:          envOr("DB_NAME_TEST", "food_ordering_test"),
			SSLMode:         "disable",
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: 5 * time.Minute,
			MigrationsPath:  "../../migrations",
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pg, err := db.NewPostgres(ctx, cfg)
		cancel()
		if err == nil {
			if db.Migrate(cfg) == nil {
				testPool = pg.Pool
			} else {
				pg.Close()
			}
		}
	}

	exitCode := m.Run()

	if testPool != nil {
		testPool.Close()
	}
	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupRepository truncates all tables and seeds an owner, a customer and a
// restaurant the orders can reference.
func setupRepository(t *testing.T) (order.Repository, uuid.UUID, uuid.UUID) {
	t.Helper()
	if testPool == nil {
		t.Skip("DB_HOST_TEST not set or database unreachable")
	}

	ctx := context.Background()
	truncate := func() {
		_, err := testPool.Exec(ctx, "TRUNCATE TABLE orders, menu_items, restaurants, users CASCADE")
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(truncate)

	ownerID, customerID, restaurantID := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	_, err := testPool.Exec(ctx, `INSERT INTO users (id, auth0_id, email) VALUES ($1, 'auth0|owner', 'owner@example.com'), ($2, 'auth0|customer', 'customer@example.com')`, ownerID, customerID)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx, `
		INSERT INTO restaurants (id, user_id, restaurant_name, city, country, delivery_price, estimated_delivery_time)
		VALUES ($1, $2, 'Spice Route', 'Mumbai', 'India', 40.00, 30)`, restaurantID, ownerID)
	require.NoError(t, err)

	return order.NewRepository(testPool), customerID, restaurantID
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo, customerID, restaurantID := setupRepository(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &order.Order{
		ID:           uuid.Must(uuid.NewV4()),
		RestaurantID: restaurantID,
		UserID:       customerID,
		DeliveryDetails: order.DeliveryDetails{
			Email: "customer@example.com", Name: "Customer", AddressLineOne: "12 Marine Drive", City: "Mumbai",
		},
		CartItems:         []order.CartItem{{MenuItemID: biryaniID, Name: "Biryani", Quantity: 2}},
		Status:            order.StatusPlaced,
		CheckoutSessionID: "cs_test_1",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.CartItems, got.CartItems)
	assert.Equal(t, o.DeliveryDetails, got.DeliveryDetails)
	assert.Equal(t, order.StatusPlaced, got.Status)
	assert.Nil(t, got.TotalAmount)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestPostgresRepository_UpdateStatusIsConditional(t *testing.T) {
	repo, customerID, restaurantID := setupRepository(t)
	ctx := context.Background()

	o := &order.Order{
		ID:           uuid.Must(uuid.NewV4()),
		RestaurantID: restaurantID,
		UserID:       customerID,
		CartItems:    []order.CartItem{},
		Status:       order.StatusPlaced,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, o))

	total := 340.0
	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPlaced, order.StatusPaid, &total))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, o.ID, order.StatusPlaced, order.StatusPaid, &total), order.ErrStatusConflict)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPaid, order.StatusInProgress, nil))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, got.Status)
	require.NotNil(t, got.TotalAmount)
	assert.Equal(t, 340.0, *got.TotalAmount)
}

func TestPostgresRepository_ListNewestFirst(t *testing.T) {
	repo, customerID, restaurantID := setupRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o := &order.Order{
			ID:           uuid.Must(uuid.NewV4()),
			RestaurantID: restaurantID,
			UserID:       customerID,
			CartItems:    []order.CartItem{},
			Status:       order.StatusPlaced,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:    base,
		}
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
	}

	byUser, err := repo.ListByUserID(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, byUser, 3)
	assert.Equal(t, ids[2], byUser[0].ID)
	assert.Equal(t, ids[0], byUser[2].ID)

	byRestaurant, err := repo.ListByRestaurantID(ctx, restaurantID)
	require.NoError(t, err)
	assert.Len(t, byRestaurant, 3)

	none, err := repo.ListByUserID(ctx, uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	assert.Empty(t, none)
}
