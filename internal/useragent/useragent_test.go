package useragent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandom(t *testing.T) {
	for range 20 {
		ua := Random()
		require.True(t, strings.HasPrefix(ua, "Mozilla/5.0 "), ua)
		require.Contains(t, userAgents, ua)
	}
}
