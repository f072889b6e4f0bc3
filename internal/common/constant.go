package common

const (
	// MinID is the lowest valid entity id. Ids below it are rejected as
	// invalid input before any store access.
	MinID int64 = 1

	// SecretLength is the number of random bytes in a participant secret.
	// The stored secret is the hex encoding, twice as many characters.
	SecretLength = 32
)
