// Package manualtraits checks that hand-written extension traits are declared
// in the gir configuration.
package manualtraits

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const suffix = "ExtManual"

// girFile is the part of a Gir.toml file this check reads.
type girFile struct {
	Options struct {
		Library  string   `toml:"library"`
		Generate []string `toml:"generate"`
		Builders []string `toml:"builders"`
		Manual   []string `toml:"manual"`
	} `toml:"options"`
	Objects []struct {
		Name         string   `toml:"name"`
		ManualTraits []string `toml:"manual_traits"`
	} `toml:"object"`
}

// objects lists what the gir configuration knows about the crate.
type objects struct {
	// declared holds every trait listed in a manual_traits entry.
	declared map[string]bool
	// listed holds the names of the crate objects, without library prefix.
	listed map[string]bool
}

// Checker reports "pub trait XExtManual" declarations missing from the
// manual_traits of object X.
type Checker struct {
	girFile string
}

// New creates a Checker reading the named gir file of each folder.
func New(girFile string) *Checker {
	if girFile == "" {
		girFile = "Gir.toml"
	}
	return &Checker{girFile: girFile}
}

// Name returns the check identifier.
func (c *Checker) Name() string { return "manual-traits" }

// Check implements checks.Checker.
func (c *Checker) Check(ctx context.Context, folder string, out io.Writer) (bool, error) {
	objs, err := loadObjects(filepath.Join(folder, c.girFile), out)
	if err != nil {
		return false, err
	}
	missing, err := findMissing(ctx, filepath.Join(folder, "src"), objs, out)
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		fmt.Fprintln(out, "xx> Some manual traits are missing from the Gir.toml file:")
		for _, name := range missing {
			fmt.Fprintln(out, name)
		}
	}
	return len(missing) == 0, nil
}

func loadObjects(path string, out io.Writer) (*objects, error) {
	fmt.Fprintf(out, "==> Getting objects from %q\n", path)

	var gir girFile
	if _, err := toml.DecodeFile(path, &gir); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	lib := gir.Options.Library
	if lib == "" {
		return nil, fmt.Errorf("%s: options.library is missing", path)
	}

	objs := &objects{declared: make(map[string]bool), listed: make(map[string]bool)}
	for _, list := range [][]string{gir.Options.Generate, gir.Options.Builders} {
		for _, entry := range list {
			if _, name, ok := strings.Cut(entry, "."); ok {
				objs.listed[firstPart(name)] = true
			}
		}
	}
	for _, entry := range gir.Options.Manual {
		if l, name, ok := strings.Cut(entry, "."); ok && l == lib {
			objs.listed[firstPart(name)] = true
		}
	}
	for _, obj := range gir.Objects {
		l, name, ok := strings.Cut(obj.Name, ".")
		if !ok || l != lib {
			continue
		}
		for _, trait := range obj.ManualTraits {
			objs.declared[trait] = true
		}
		objs.listed[firstPart(name)] = true
	}

	fmt.Fprintln(out, "<== done")
	return objs, nil
}

func findMissing(ctx context.Context, srcDir string, objs *objects, out io.Writer) ([]string, error) {
	fmt.Fprintf(out, "==> Getting manual traits from %q\n", srcDir)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", srcDir, err)
	}

	var missing []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(srcDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			name, ok := manualTrait(line)
			if !ok {
				continue
			}
			if !objs.declared[name] && objs.listed[strings.TrimSuffix(name, suffix)] {
				missing = append(missing, name)
			}
		}
	}

	fmt.Fprintln(out, "<== done")
	return missing, nil
}

// manualTrait returns the name declared by a "pub trait XExtManual" line.
func manualTrait(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "pub trait ")
	if !ok {
		return "", false
	}
	if i := strings.IndexAny(rest, "{<:"); i >= 0 {
		rest = rest[:i]
	}
	name := strings.TrimSpace(rest)
	if !strings.HasSuffix(name, suffix) || name == suffix {
		return "", false
	}
	return name, true
}

// firstPart drops nested names such as the "Bar" of "Foo.Bar".
func firstPart(name string) string {
	part, _, _ := strings.Cut(name, ".")
	return part
}
