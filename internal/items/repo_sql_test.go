package items

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `A\%B\_C`, escapeLike("A%B_C"))
	require.Equal(t, `A\\B`, escapeLike(`A\B`))
	require.Equal(t, "A-03", escapeLike("A-03"))
}
