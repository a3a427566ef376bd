package domain

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SurrogateID maps an arbitrary external identifier string to a stable
// UUID: the SHA-256 digest of the UTF-8 string truncated to 16 bytes.
// Repeated occurrences of the same string always map to the same UUID,
// across calls and processes.
func SurrogateID(s string) uuid.UUID {
	sum := sha256.Sum256([]byte(s))
	var id uuid.UUID
	copy(id[:], sum[:16])
	return id
}

// ID is an inbound identifier. Upstream producers sometimes send
// identifiers that are not UUID-shaped; those are mapped through
// SurrogateID instead of being rejected.
type ID struct {
	uuid.UUID
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("ID: %w", err)
	}
	if s == "" {
		id.UUID = uuid.Nil
		return nil
	}
	if u, err := uuid.Parse(s); err == nil {
		id.UUID = u
		return nil
	}
	id.UUID = SurrogateID(s)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.UUID.String())
}
