package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/pkg/yaml"
)

func TestYAMLError(t *testing.T) {
	t.Parallel()

	err := yaml.NewError(
		errors.New("test error"),
		yaml.WithPath(yaml.NewPathBuilder().Root().Child("key").Build()),
		yaml.WithSourceLines(2),
		yaml.WithSource([]byte(`a: b
b: c
foo: "bar"
key: value
baz: 5
c: d
e: f`)),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "test error")
	assert.Contains(t, err.Error(), "key: value")
	assert.Contains(t, err.Error(), "> 4")
}

func TestYAMLError_NoSource(t *testing.T) {
	t.Parallel()

	err := yaml.NewError(
		errors.New("test error"),
		yaml.WithPath(yaml.NewPathBuilder().Root().Child("key").Build()),
	)

	require.Error(t, err)
	assert.Equal(t, "error at $.key: test error", err.Error())
}

func TestYAMLError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := yaml.NewError(cause)

	require.ErrorIs(t, err, cause)
}

func TestErrorWrapper(t *testing.T) {
	t.Parallel()

	source := []byte("key: value\n")
	ew := yaml.NewErrorWrapper(yaml.WithSource(source))

	t.Run("adds opts to yaml errors", func(t *testing.T) {
		t.Parallel()

		err := ew.Wrap(yaml.NewError(errors.New("bad value")))

		var yamlErr *yaml.Error
		require.ErrorAs(t, err, &yamlErr)
		assert.Equal(t, source, yamlErr.Source)
	})

	t.Run("passes through other errors", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("not a yaml error")
		assert.Equal(t, cause, ew.Wrap(cause))
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, ew.Wrap(nil))
	})
}
