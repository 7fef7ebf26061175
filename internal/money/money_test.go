package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1999:   "19.99",
		100000: "1000.00",
		-250:   "-2.50",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(in), in)
	}
}

func TestFromMinor(t *testing.T) {
	assert.True(t, FromMinor(1050).Equal(FromMinor(1000).Add(FromMinor(50))))
	assert.Equal(t, "10.5", FromMinor(1050).String())
}
