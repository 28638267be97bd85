package user

import (
	"time"

	"github.com/gofrs/uuid"
)

// User is a customer or restaurant owner. Auth0ID is the subject issued by
// the identity provider; ID is ours.
type User struct {
	ID             uuid.UUID `json:"_id"`
	Auth0ID        string    `json:"auth0Id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	AddressLineOne string    `json:"addressLineOne,omitempty"`
	City           string    `json:"city,omitempty"`
	Country        string    `json:"country,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Profile struct {
	Name           string
	AddressLineOne string
	City           string
	Country        string
}
