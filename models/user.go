package models

// User represents a row in the "users" table. The id is supplied by the
// messaging transport (a numeric chat-platform user id), not assigned by the
// database. Users are created once on first contact and never mutated or
// deleted; a repeat registration leaves the stored name as it was.
type User struct {
	ID   int64
	Name string
}
