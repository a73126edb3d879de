package pcsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitForCardNoReaders(t *testing.T) {
	_, err := WaitForCard(nil, nil)
	assert.ErrorIs(t, err, ErrNoReaders)
}
