package services

import (
	"fmt"
	"strings"
)

// Script runs are wrapped in boilerplate before they reach python3: a
// non-interactive matplotlib backend, common data libraries, guarded
// execution, and a pass that saves any figure left open as a PNG in the
// workspace so chart artifacts are fetchable through the file read
// path. Exit codes distinguish user-code failures (1) from chart save
// failures (3).
const (
	scriptHeader = `import matplotlib
matplotlib.use('Agg')
import matplotlib.pyplot as plt
import pandas as pd
import numpy as np
import sys
import os

try:
`

	scriptFooter = `
except Exception as e:
    print("error during user code execution: %%s" %% e, file=sys.stderr, flush=True)
    sys.exit(1)

try:
    if plt.get_fignums():
        plt.savefig(%q, format='png', bbox_inches='tight')
except Exception as e:
    print("error saving chart: %%s" %% e, file=sys.stderr, flush=True)
    sys.exit(3)
finally:
    plt.close('all')

sys.exit(0)
`
)

// wrapScript indents the user's code into the guarded template. The
// chart filename is workspace-relative; %q quoting yields a valid
// Python string literal for any generated name.
func wrapScript(userCode, chartFilename string) string {
	var b strings.Builder
	b.WriteString(scriptHeader)
	for _, line := range strings.Split(strings.TrimRight(userCode, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf(scriptFooter, chartFilename))
	return b.String()
}
