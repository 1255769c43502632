package domain

// User is the identity record consumed by the sync core. Registration,
// verification codes and token issuance live in the auth service; here a
// user is only an id behind an email.
type User struct {
	ID    string `json:"id" bson:"_id"`
	Email string `json:"email" bson:"email" validate:"required,email"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
}

type UserLookupResponse struct {
	UserID string `json:"userId"`
}
