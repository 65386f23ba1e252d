package api

import (
	"time"

	"github.com/camazac/realty/internal/models"
)

// Property is the JSON shape of a listing.
type Property struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Price       int64     `json:"price"`
	Type        string    `json:"type"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewProperty converts a stored property into its response form.
func NewProperty(p *models.Property) Property {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return Property{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		Price:       p.Price,
		Type:        p.Type,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProperties converts a list of stored properties.
func NewProperties(list []*models.Property) []Property {
	out := make([]Property, 0, len(list))
	for _, p := range list {
		out = append(out, NewProperty(p))
	}
	return out
}

// CreateMessageRequest представляет заявку с контактной формы
type CreateMessageRequest struct {
	UserID     string `json:"userId"`
	PropertyID string `json:"propertyId"`
	Message    string `json:"message"`
	UserName   string `json:"userName"`
	UserEmail  string `json:"userEmail"`
}

// Message is the JSON shape of a contact lead.
type Message struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	PropertyID string    `json:"propertyId"`
	Message    string    `json:"message"`
	UserName   string    `json:"userName"`
	UserEmail  string    `json:"userEmail"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessage converts a stored message into its response form.
func NewMessage(m *models.Message) Message {
	return Message{
		ID:         m.ID,
		UserID:     m.UserID,
		PropertyID: m.PropertyID,
		Message:    m.Body,
		UserName:   m.UserName,
		UserEmail:  m.UserEmail,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMessages converts a list of stored messages.
func NewMessages(list []*models.Message) []Message {
	out := make([]Message, 0, len(list))
	for _, m := range list {
		out = append(out, NewMessage(m))
	}
	return out
}
