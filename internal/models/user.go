package models

// UserProfile is the slice of the external identity service's user record the
// booking core consumes. Authentication is not owned here.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
