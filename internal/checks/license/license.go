// Package license checks that source files start with the license header.
package license

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Checker verifies the header of every file directly inside <folder>/src.
type Checker struct {
	header string
}

// New creates a Checker expecting header as first line.
func New(header string) *Checker {
	return &Checker{header: header}
}

// Name returns the check identifier.
func (c *Checker) Name() string { return "license" }

// Check implements checks.Checker.
func (c *Checker) Check(ctx context.Context, folder string, out io.Writer) (bool, error) {
	srcDir := filepath.Join(folder, "src")
	fmt.Fprintf(out, "==> Checking license headers from %q\n", srcDir)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return false, fmt.Errorf("failed to read directory %q: %w", srcDir, err)
	}

	errCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		path := filepath.Join(srcDir, entry.Name())
		ok, err := c.checkFile(path, out)
		if err != nil {
			return false, err
		}
		if !ok {
			errCount++
		}
	}
	fmt.Fprintln(out, "<== done")
	return errCount == 0, nil
}

func (c *Checker) checkFile(path string, out io.Writer) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open `%s`: %w", path, err)
	}
	defer f.Close()

	var head []string
	scanner := bufio.NewScanner(f)
	for len(head) < 2 && scanner.Scan() {
		head = append(head, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading `%s`: %w", path, err)
	}

	switch {
	case len(head) != 2 || head[0] != c.header:
		fmt.Fprintf(out, "xx> Missing header in `%s`\n", path)
		return false, nil
	case head[1] != "":
		fmt.Fprintf(out, "xx> Expected empty line after license header in `%s`\n", path)
		return false, nil
	}
	return true, nil
}
