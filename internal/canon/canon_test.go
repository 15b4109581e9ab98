package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "population", "population"},
		{"mixed case", "Population", "population"},
		{"quoted", `"Total Population"`, "total population"},
		{"internal whitespace collapsed", "total   population", "total population"},
		{"surrounding whitespace trimmed", "  population  ", "population"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Name(c.in))
		})
	}
}

func TestName_Idempotent(t *testing.T) {
	for _, in := range []string{"Population", `"Birth Rate"`, "  a  b  "} {
		once := Name(in)
		twice := Name(once)
		assert.Equal(t, once, twice)
	}
}
