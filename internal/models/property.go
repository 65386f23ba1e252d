package models

import "time"

// MaxPropertyImages is the upper bound of images a property may reference.
const MaxPropertyImages = 5

// Property представляет объект недвижимости в каталоге
type Property struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Price       int64     `json:"price"` // в минимальных единицах валюты
	Type        string    `json:"type"`  // "Casa", "Departamento", "Terreno", ...
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message представляет заявку с контактной формы
type Message struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PropertyID string    `json:"property_id"`
	Body       string    `json:"message"`
	UserName   string    `json:"user_name"`  // снимок имени на момент отправки
	UserEmail  string    `json:"user_email"` // снимок email на момент отправки
	CreatedAt  time.Time `json:"created_at"`
}
