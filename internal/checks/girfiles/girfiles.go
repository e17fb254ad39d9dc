// Package girfiles checks the indentation of gir TOML files.
package girfiles

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Checker verifies that every .toml file below a folder is indented by a
// multiple of the configured width.
type Checker struct {
	width int
}

// New creates a Checker for the given indent width.
func New(width int) *Checker {
	if width <= 0 {
		width = 4
	}
	return &Checker{width: width}
}

// Name returns the check identifier.
func (c *Checker) Name() string { return "gir-files" }

// Check implements checks.Checker.
func (c *Checker) Check(ctx context.Context, folder string, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "==> Checking gir files indent in `%s`\n", folder)

	errCount := 0
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to read directory `%s`: %w", path, err)
		}
		if d.IsDir() || filepath.Ext(path) != ".toml" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := c.checkFile(path, out)
		if err != nil {
			return err
		}
		if !ok {
			errCount++
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	fmt.Fprintln(out, "<== done")
	return errCount == 0, nil
}

// checkFile reports the first badly indented line of path.
func (c *Checker) checkFile(path string, out io.Writer) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open `%s`: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		indent := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		if indent%c.width != 0 {
			fmt.Fprintf(out, "xx> Invalid indent in `%s:%d`: it must be a multiple of %d!\n", path, n, c.width)
			return false, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading `%s`: %w", path, err)
	}
	return true, nil
}
