package menufile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
items:
  - id: 1
    name: Hamburguesa de Pollo
    quantity: 40
    desc: Hamburguesa de pollo frito
    price: 24
    image: cb.jpg
  - id: 7
    name: Limonada
    quantity: 12
    price: "3.50"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	menu, err := Load(path)
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "24", menu[0].Price.String())
	assert.Equal(t, "3.5", menu[1].Price.String())
	assert.Equal(t, 12, menu[1].Quantity)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"empty":          "items: []",
		"duplicate id":   "items:\n  - {id: 1, name: a, price: 1}\n  - {id: 1, name: b, price: 1}",
		"negative stock": "items:\n  - {id: 1, name: a, quantity: -1, price: 1}",
		"bad price":      "items:\n  - {id: 1, name: a, price: cheap}",
		"negative price": "items:\n  - {id: 1, name: a, price: -2}",
		"no name":        "items:\n  - {id: 1, price: 2}",
		"unknown field":  "items:\n  - {id: 1, name: a, price: 2, colour: red}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidMenu)
		})
	}
}
