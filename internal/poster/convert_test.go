package poster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
)

func TestBrowserConverter_SVGPassthrough(t *testing.T) {
	c := NewBrowserConverter(logger.NewTestLogger(t))
	defer c.Close()

	doc := []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)
	out, err := c.Convert(context.Background(), doc, "SVG")
	require.NoError(t, err)
	assert.Equal(t, doc, out)

	out[0] = 'x'
	assert.Equal(t, byte('<'), doc[0], "passthrough returns a copy")
}

func TestBrowserConverter_UnsupportedFormat(t *testing.T) {
	c := NewBrowserConverter(logger.NewTestLogger(t))
	defer c.Close()

	_, err := c.Convert(context.Background(), []byte("<svg/>"), "gif")
	require.Error(t, err)
	assert.True(t, apperrors.IsConversionFailed(err))
}

func TestBrowserConverter_CloseWithoutLaunch(t *testing.T) {
	c := NewBrowserConverter(logger.NewTestLogger(t))
	assert.NoError(t, c.Close(), "closing an unlaunched converter is a no-op")
}
