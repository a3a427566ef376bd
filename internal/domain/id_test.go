package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurrogateID(t *testing.T) {
	// Pinned digests: the mapping must be stable across processes and
	// releases, not merely within one run.
	tests := []struct {
		input string
		want  string
	}{
		{"user-42", "6d894aa3-ee80-2549-d7f3-40e7c1cf0d1c"},
		{"game:zelda-breath", "42b50bcf-d9ae-bc06-0123-9b25e74d1227"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SurrogateID(tt.input)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, got, SurrogateID(tt.input), "mapping must be deterministic")
		})
	}
}

func TestIDUnmarshalJSON(t *testing.T) {
	wellFormed := uuid.New()

	tests := []struct {
		name  string
		input string
		want  uuid.UUID
	}{
		{
			name:  "uuid-shaped string parses as-is",
			input: `"` + wellFormed.String() + `"`,
			want:  wellFormed,
		},
		{
			name:  "non-uuid string maps to surrogate",
			input: `"user-42"`,
			want:  SurrogateID("user-42"),
		},
		{
			name:  "empty string maps to nil",
			input: `""`,
			want:  uuid.Nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id.UUID)
		})
	}
}

func TestIDUnmarshalJSONRejectsNonString(t *testing.T) {
	var id ID
	require.Error(t, json.Unmarshal([]byte(`42`), &id))
}

func TestIDMarshalJSON(t *testing.T) {
	id := ID{UUID: uuid.MustParse("6d894aa3-ee80-2549-d7f3-40e7c1cf0d1c")}
	b, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"6d894aa3-ee80-2549-d7f3-40e7c1cf0d1c"`, string(b))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
