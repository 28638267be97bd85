package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/food-ordering/internal/money"
	"github.com/vasiliy-maslov/food-ordering/internal/payment"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("invalid cart item quantity")
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// BuildLineItems prices every cart line against the restaurant's stored menu.
// Names and prices always come from the menu, never from the client. It fails
// on the first line that cannot be priced and returns no partial result. The
// second return value is the cart as it is stored on the order.
func BuildLineItems(cart []CartLine, menu []restaurant.MenuItem, currency string) ([]payment.LineItem, []CartItem, error) {
	if len(cart) == 0 {
		return nil, nil, ErrEmptyCart
	}

	byID := make(map[uuid.UUID]restaurant.MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID] = item
	}

	lineItems := make([]payment.LineItem, 0, len(cart))
	cartItems := make([]CartItem, 0, len(cart))
	for _, line := range cart {
		id, err := uuid.FromString(line.MenuItemID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, line.MenuItemID)
		}
		menuItem, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, line.MenuItemID)
		}

		quantity, err := parseQuantity(line.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q for item %s", ErrInvalidQuantity, line.Quantity, line.MenuItemID)
		}

		unitAmount, err := money.ToSubunits(menuItem.Price)
		if err != nil {
			return nil, nil, fmt.Errorf("pricing: menu item %s: %w", menuItem.ID, err)
		}

		lineItems = append(lineItems, payment.LineItem{
			Name:       menuItem.Name,
			UnitAmount: unitAmount,
			Quantity:   quantity,
			Currency:   currency,
		})
		cartItems = append(cartItems, CartItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   int(quantity),
		})
	}

	return lineItems, cartItems, nil
}

func parseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if q <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", q)
	}
	return q, nil
}
