package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(ErrToolUnusable, "could not run %s", "unzip")
	require.NotNil(t, err)
	assert.True(t, Is(err, ErrToolUnusable))
	assert.Contains(t, err.Error(), "unzip")
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrUnknownFormat, ErrToolUnusable, ErrExtractionFailed, ErrPasswordRequired}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestPasswordRequiredNotConfusedWithExtractionFailure(t *testing.T) {
	err := Wrap(ErrPasswordRequired, "cannot extract encrypted archive in non-interactive mode")
	assert.True(t, Is(err, ErrPasswordRequired))
	assert.False(t, Is(err, ErrExtractionFailed))
}
