package appshell

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecPassesArgsAndCode(t *testing.T) {
	var got []string
	run := func(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
		got = argv
		io.WriteString(stdout, "ok")
		return 2
	}
	var out bytes.Buffer
	code := Exec(run, []string{"solve", "p.yaml"}, &out, io.Discard)
	assert.Equal(t, 2, code)
	assert.Equal(t, []string{"solve", "p.yaml"}, got)
	assert.Equal(t, "ok", out.String())
}
