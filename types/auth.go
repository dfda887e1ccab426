package types

// AuthContext identifies the caller of an operation. It is supplied by the
// external identity provider and trusted unconditionally: the engine never
// validates credentials, it only scopes records to OwnerID.
type AuthContext struct {
	OwnerID string
	Plan    string
}
