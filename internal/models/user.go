package models

// MaxPasswordBytes is the longest plaintext bcrypt accepts.
const MaxPasswordBytes = 72

// User is a persisted account record.
//
// Password carries the plaintext on input and the bcrypt hash once the
// record has gone through the credential guard.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"-" validate:"required,min=4,maxbytes=72"`
}

// UserUpdate is a partial update. Nil fields are left unchanged; a non-nil
// Password is the only thing that makes the guard hash a new password.
type UserUpdate struct {
	Username *string `json:"username,omitempty" validate:"omitnil,min=1"`
	Email    *string `json:"email,omitempty" validate:"omitnil,email"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=4,maxbytes=72"`
}

// Empty reports whether the update carries no fields at all.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil
}

// PasswordChanged reports whether the update supplies a new password.
func (u UserUpdate) PasswordChanged() bool {
	return u.Password != nil
}
