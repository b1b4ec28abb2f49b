package criticalcss

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OutputPlaceholder in a command argument is replaced with the output directory.
const OutputPlaceholder = "{output}"

// CommandGenerator runs an external tool and reads the critical CSS from its
// standard output.
type CommandGenerator struct {
	Command string
	Args    []string
	// Dir is the working directory; empty runs in the output directory.
	Dir string
}

// Generate implements Generator.
func (g CommandGenerator) Generate(ctx context.Context, outputDir string) (string, error) {
	if g.Command == "" {
		return "", fmt.Errorf("no critical CSS command configured")
	}
	args := make([]string, len(g.Args))
	for i, a := range g.Args {
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, outputDir)
	}
	// #nosec G204 -- command and args come from the operator's configuration
	cmd := exec.CommandContext(ctx, g.Command, args...)
	cmd.Dir = g.Dir
	if cmd.Dir == "" {
		cmd.Dir = outputDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%s: %w", g.Command, err)
		}
		return "", fmt.Errorf("%s: %w: %s", g.Command, err, msg)
	}
	return stdout.String(), nil
}
