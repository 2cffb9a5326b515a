package domain

import "time"

// Account es la cuenta de acceso: credencial local o identidad federada.
type Account struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	PasswordHash      string    `json:"-"`
	FederatedSubject  string    `json:"-"`
	FederatedProvider string    `json:"federated_provider,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsFederated indica si la cuenta proviene de un proveedor externo.
func (a Account) IsFederated() bool {
	return a.FederatedProvider != ""
}
