package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "simple", token: "[[Widget]]", want: "Widget"},
		{name: "multi word", token: "[[Knowledge Management]]", want: "Knowledge Management"},
		{name: "inner whitespace trimmed", token: "[[ Widget ]]", want: "Widget"},
		{name: "missing brackets", token: "Widget", wantErr: true},
		{name: "missing close", token: "[[Widget", wantErr: true},
		{name: "missing open", token: "Widget]]", wantErr: true},
		{name: "empty name", token: "[[]]", wantErr: true},
		{name: "blank name", token: "[[   ]]", wantErr: true},
		{name: "empty string", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.Name)
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref, err := ParseReference("[[ Acme Corp ]]")
	require.NoError(t, err)
	assert.Equal(t, "[[Acme Corp]]", ref.String())
}

func TestEntityName(t *testing.T) {
	e := &Entity{Type: "Person", Properties: map[string]any{"name": "Ada"}}
	assert.Equal(t, "Ada", e.Name())

	e = &Entity{Type: "Person", Properties: map[string]any{"name": 42}}
	assert.Equal(t, "", e.Name(), "non-string name yields empty")

	e = &Entity{Type: "Person"}
	assert.Equal(t, "", e.Name(), "nil properties yields empty")
}

func TestEntityKey(t *testing.T) {
	e := &Entity{Type: "Person", Properties: map[string]any{"name": "Ada"}}
	assert.Equal(t, EntityKey{Type: "Person", Name: "Ada"}, e.Key())
}

func TestConfidenceOrDefault(t *testing.T) {
	e := &Entity{Type: "Person"}
	assert.Equal(t, 1.0, e.ConfidenceOrDefault(), "unscored entity defaults to full confidence")

	c := 0.4
	e.Confidence = &c
	assert.Equal(t, 0.4, e.ConfidenceOrDefault())
}
