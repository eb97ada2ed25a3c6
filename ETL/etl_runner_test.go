package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"scheduled", "once", "ingest", "indicators", "funding", "forecast"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.RunE, name)
	}

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}
