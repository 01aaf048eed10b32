package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProducts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeProducts(t, `
products:
  - code: "1002"
    name: "Продукт Б"
  - code: "1001"
    name: " Продукт А "
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	name, ok := c.Lookup(" 1001")
	assert.True(t, ok)
	assert.Equal(t, "Продукт А", name)

	_, ok = c.Lookup("9999")
	assert.False(t, ok)

	products := c.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "1001", products[0].Code)
	assert.Equal(t, "1002", products[1].Code)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing code", "products:\n  - name: X\n", "missing code"},
		{"missing name", "products:\n  - code: \"1\"\n", "missing name"},
		{"duplicate", "products:\n  - {code: \"1\", name: A}\n  - {code: \"1\", name: B}\n", "more than once"},
		{"not yaml", "products: [", "unable to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProducts(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "unable to read")
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("1001")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.Nil(t, c.Products())
}
