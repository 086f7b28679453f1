package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$221.00", FormatUSD(221))
	assert.Equal(t, "$1,234.57", FormatUSD(1234.567))
	assert.Equal(t, "-$2.50", FormatUSD(-2.5))
	assert.Equal(t, "$0.00", FormatUSD(0))
}
