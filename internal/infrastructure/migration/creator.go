package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Name}}
-- Created: {{.Created}}

`

const downTemplate = `-- Rollback for {{.Name}}

`

// versionWidth matches the zero padding of the shipped migrations
const versionWidth = 6

// Entry is one migration pair found in a source
type Entry struct {
	Version uint
	Name    string
	HasDown bool
}

// Basename returns the shared prefix of the up and down files
func (e Entry) Basename() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, e.Version, e.Name)
}

// Created describes a newly written migration pair
type Created struct {
	Entry
	Created  string
	UpPath   string
	DownPath string
}

// ListMigrations returns the migrations in fsys ordered by version.
// Files that do not follow the NNNNNN_name.(up|down).sql pattern are ignored.
func ListMigrations(fsys fs.FS) ([]Entry, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		version, name, direction, ok := parseFilename(f.Name())
		if !ok {
			continue
		}
		entry, exists := byVersion[version]
		if !exists {
			entry = &Entry{Version: version, Name: name}
			byVersion[version] = entry
		}
		if direction == "down" {
			entry.HasDown = true
		}
	}

	out := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// NextVersion returns one past the highest version in fsys
func NextVersion(fsys fs.FS) (uint, error) {
	entries, err := ListMigrations(fsys)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 1, nil
	}
	return entries[len(entries)-1].Version + 1, nil
}

// CreateMigration writes an empty up/down pair into dir with the next sequential version
func CreateMigration(dir, name string) (*Created, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version, err := NextVersion(os.DirFS(dir))
	if err != nil {
		return nil, err
	}

	c := &Created{
		Entry:   Entry{Version: version, Name: slug, HasDown: true},
		Created: time.Now().UTC().Format(time.RFC3339),
	}
	c.UpPath = filepath.Join(dir, c.Basename()+".up.sql")
	c.DownPath = filepath.Join(dir, c.Basename()+".down.sql")

	if err := writeTemplate(c.UpPath, upTemplate, c); err != nil {
		return nil, err
	}
	if err := writeTemplate(c.DownPath, downTemplate, c); err != nil {
		_ = os.Remove(c.UpPath)
		return nil, err
	}
	return c, nil
}

func writeTemplate(path, text string, data *Created) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// parseFilename splits "000002_create_invoices.up.sql" into its parts
func parseFilename(filename string) (version uint, name, direction string, ok bool) {
	base, found := strings.CutSuffix(filename, ".sql")
	if !found {
		return 0, "", "", false
	}
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		return 0, "", "", false
	}
	direction = base[dot+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", false
	}
	rawVersion, name, found := strings.Cut(base[:dot], "_")
	if !found || name == "" {
		return 0, "", "", false
	}
	v, err := strconv.ParseUint(rawVersion, 10, 64)
	if err != nil {
		return 0, "", "", false
	}
	return uint(v), name, direction, true
}

// sanitizeName lowercases name and collapses separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
