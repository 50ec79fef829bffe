// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type pkg struct {
	ImportPath string
	Imports    []string
}

// bans maps a package prefix to the module prefixes it must never import.
var bans = map[string][]string{
	"chisel/core/": {
		"chisel/internal/", "chisel/pkg/", "chisel/cmd/",
	},
	"chisel/pkg/api": {
		"chisel/internal/", "chisel/cmd/",
	},
	"chisel/internal/output": {
		"chisel/internal/app", "chisel/internal/writers", "chisel/internal/config", "chisel/cmd/",
	},
	"chisel/internal/writers": {
		"chisel/internal/app", "chisel/internal/config", "chisel/cmd/",
	},
	"chisel/internal/pretty": {
		"chisel/core/", "chisel/internal/app", "chisel/cmd/",
	},
	"chisel/internal/blast": {
		"chisel/core/spec", "chisel/core/solver", "chisel/internal/app", "chisel/cmd/",
	},
	"chisel/internal/problemfile": {
		"chisel/core/solver", "chisel/internal/app", "chisel/cmd/",
	},
	"chisel/internal/metrics": {
		"chisel/internal/app", "chisel/cmd/",
	},
}

func TestImportBoundaries(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}
	cmd := exec.Command("go", "list", "-json", "chisel/...")
	var out bytes.Buffer
	cmd.Stdout = &out
	require.NoError(t, cmd.Run(), "go list")

	dec := json.NewDecoder(&out)
	var violations []string
	for {
		var p pkg
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err, "decode")

		for prefix, forbidden := range bans {
			if !strings.HasPrefix(p.ImportPath, prefix) {
				continue
			}
			for _, dep := range p.Imports {
				for _, ban := range forbidden {
					if strings.HasPrefix(dep, ban) {
						violations = append(violations, p.ImportPath+" → "+dep)
					}
				}
			}
		}
	}
	require.Empty(t, violations, "import boundary violations")
}
