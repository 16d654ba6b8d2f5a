package domain

import (
	"time"

	"github.com/google/uuid"
)

// Server is an opaque administrable resource tracked by the panel.
type Server struct {
	// ID is assigned once at creation and never reused.
	ID uuid.UUID `json:"id"`

	// Name is the display name of the server.
	Name string `json:"name"`

	// Description is optional.
	Description *string `json:"description"`

	// CreatedAt is the timestamp when the server was created.
	CreatedAt time.Time `json:"createdAt"`

	// OwnerUsername is the username on the earliest ownership link, or nil when unowned.
	OwnerUsername *string `json:"ownerUsername"`
}

// NewServer creates a new Server with the given identity.
func NewServer(id uuid.UUID, name string, description *string) *Server {
	return &Server{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
