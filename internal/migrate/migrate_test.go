package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingIsSortedAndEmbedded(t *testing.T) {
	names, err := Pending()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_journal.sql", names[0])
	assert.IsIncreasing(t, names)
}
