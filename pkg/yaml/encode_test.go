package yaml_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/pkg/yaml"
)

func TestEncoder_Encode(t *testing.T) {
	t.Parallel()

	var sb strings.Builder

	enc := yaml.NewEncoder(&sb)
	require.NoError(t, enc.Encode(map[string]any{
		"a": []string{"x", "y"},
	}))
	require.NoError(t, enc.Close())

	assert.Equal(t, "a:\n  - x\n  - y\n", sb.String())
}
