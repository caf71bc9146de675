package label

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	pdf, err := Render("3f6f2b1e-0000-4000-8000-000000000000", "Perfume", "17 DA")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"), "output is not a PDF")
}

func TestRenderEmptyProductName(t *testing.T) {
	pdf, err := Render("some-id", "", "17 DA")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}
