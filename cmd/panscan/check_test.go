package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheck(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	checkRulesPath = ""

	err := runCheck(cmd, []string{"4111 1111 1111 1111", "4111111111111112", "3782-822463-10005", "9999999999999995"})
	require.NoError(t, err)

	assert.Equal(t,
		"4111111111111111\tvalid\tVISA\n"+
			"4111111111111112\tinvalid\t\n"+
			"378282246310005\tvalid\tAMEX\n"+
			"9999999999999995\tvalid\t\n",
		buf.String())
}

func TestRunCheck_NotANumber(t *testing.T) {
	checkRulesPath = ""
	err := runCheck(&cobra.Command{}, []string{"41x1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "41x1")
}
