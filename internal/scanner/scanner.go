// Package scanner finds the Python sources under a directory. It skips
// hidden entries and common virtualenv and build directories, and honors
// gitignore-style .tangentignore files at any level of the tree.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IgnoreFileName is the per-directory ignore file.
const IgnoreFileName = ".tangentignore"

// File is one discovered source file.
type File struct {
	Path     string // relative to the scan root, slash separated
	FullPath string
	Size     int64
}

// Options configures a scan.
type Options struct {
	SkipHidden bool
	Excludes   []string // directory names skipped wherever they appear
	Extensions []string
}

// DefaultOptions scans .py files and skips virtualenvs, caches and build output.
func DefaultOptions() Options {
	return Options{
		SkipHidden: true,
		Excludes: []string{
			"__pycache__", ".venv", "venv", "env", ".tox", ".nox",
			".eggs", "build", "dist", "site-packages", "node_modules",
		},
		Extensions: []string{".py"},
	}
}

// Scan walks root and returns the matching files sorted by path.
func Scan(root string, opts Options) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	// rules are scoped to the directory that declared them
	rules := map[string][]Pattern{}
	var files []File

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." {
				if opts.excluded(d.Name()) || ignored(rules, rel, true) {
					return filepath.SkipDir
				}
			}
			patterns, err := loadIgnoreFile(filepath.Join(path, IgnoreFileName))
			if err != nil {
				return fmt.Errorf("reading %s: %w", filepath.Join(rel, IgnoreFileName), err)
			}
			if len(patterns) > 0 {
				rules[rel] = patterns
			}
			return nil
		}

		if opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() || !opts.wanted(d.Name()) || ignored(rules, rel, false) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, File{Path: rel, FullPath: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (o Options) excluded(name string) bool {
	if o.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ex := range o.Excludes {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}

func (o Options) wanted(name string) bool {
	for _, ext := range o.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ignored applies the rules of every ancestor directory, outermost first.
// A later matching pattern overrides an earlier one.
func ignored(rules map[string][]Pattern, rel string, isDir bool) bool {
	result := false
	dir := "."
	parts := strings.Split(rel, "/")
	for i := 0; i < len(parts); i++ {
		sub := strings.Join(parts[i:], "/")
		for _, p := range rules[dir] {
			if p.Match(sub, isDir) {
				result = !p.Negate
			}
		}
		if dir == "." {
			dir = parts[i]
		} else {
			dir = dir + "/" + parts[i]
		}
	}
	return result
}

func loadIgnoreFile(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParsePattern(line))
	}
	return patterns, sc.Err()
}
