package store

// User is a registered account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           int32
	UID          string
	Email        string
	Nickname     string
	PasswordHash string
	CreatedTs    int64
	UpdatedTs    int64
}

type FindUser struct {
	ID    *int32
	UID   *string
	Email *string
}
