package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeOptions_Complete(t *testing.T) {
	o := &ModeOptions{Mode: "dev"}
	o.Complete(nil)
	assert.Equal(t, "dev", o.Mode)

	o.Complete([]string{"rel"})
	assert.Equal(t, "rel", o.Mode)

	o.Complete([]string{""})
	assert.Equal(t, "rel", o.Mode)
}

func TestRootFlags_TransferAndTimeout(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	assert.Equal(t, "15s", flags.Lookup("timeout").DefValue)
	assert.Equal(t, "16", flags.Lookup("threads").DefValue)
	assert.Equal(t, "32768", flags.Lookup("chunk-size").DefValue)
}
