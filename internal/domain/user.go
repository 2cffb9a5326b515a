package domain

import "time"

// User es una fila sintética del dataset de analítica.
type User struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Age      int       `json:"age"`
	City     string    `json:"city"`
	Salary   float64   `json:"salary"`
	JoinDate time.Time `json:"join_date"`
}
