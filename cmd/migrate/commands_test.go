package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mabego/chat-mysql/internal/assert"
)

func TestCommandsRequireDSN(t *testing.T) {
	for _, sub := range []string{"up", "down", "version"} {
		t.Run(sub, func(t *testing.T) {
			root := newRootCmd()
			root.SetOut(new(bytes.Buffer))
			root.SetErr(new(bytes.Buffer))
			root.SetArgs([]string{sub})

			err := root.Execute()
			if !errors.Is(err, errNoDSN) {
				t.Fatalf("got: %v; want: %v", err, errNoDSN)
			}
		})
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"up", "down", "version"} {
		cmd, _, err := root.Find([]string{name})
		assert.NilError(t, err)
		assert.Equal(t, cmd.Name(), name)
	}

	assert.Equal(t, root.PersistentFlags().Lookup("dsn").DefValue, "")
}
