package model

// User represents an application user record as stored in the
// `users` table.  Earlier schema variants identified users by email
// with a password; the current one registers them by display name.
// Both are supported, so Email and PasswordHash are nullable.
//
// Fields:
//  UserID       – primary key identifier.
//  Name         – unique display name used by /register-user.
//  Email        – optional unique email address.
//  PasswordHash – bcrypt hash of the optional credential; never serialized.
//  CreatedAt    – creation time in seconds since epoch.
type User struct {
	UserID       int64   `json:"user_id"`    // users.user_id
	Name         string  `json:"name"`       // users.name
	Email        *string `json:"email"`      // users.email (nullable)
	PasswordHash *string `json:"-"`          // users.password_hash (nullable)
	CreatedAt    int64   `json:"created_at"` // users.created_at
}
