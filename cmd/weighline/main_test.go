package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	serve, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, serve.Flags().Lookup("port"))

	notifier, _, err := rootCmd.Find([]string{"notifier"})
	require.NoError(t, err)
	assert.Equal(t, "notifier", notifier.Name())

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-path"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestServe_RejectsBadPort(t *testing.T) {
	servePort = 70000
	defer func() { servePort = 0 }()

	assert.Error(t, serveCmd.PreRunE(serveCmd, nil))

	servePort = 3000
	assert.NoError(t, serveCmd.PreRunE(serveCmd, nil))
}
