package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// migrationFile matches 001_create_runs.up.sql and 001_create_runs.down.sql
var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider loads migrations from a directory of an fs.FS, usually an embed.FS
type FSProvider struct {
	fsys fs.FS
	dir  string
}

// NewFSProvider creates a provider reading the migrations in dir
func NewFSProvider(fsys fs.FS, dir string) *FSProvider {
	return &FSProvider{fsys: fsys, dir: dir}
}

// Migrations loads all migrations found in the directory
func (p *FSProvider) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(p.fsys, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory %s: %w", p.dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(p.fsys, p.dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}

		mg, ok := byVersion[version]
		if !ok {
			mg = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = mg
		}
		if matches[3] == "up" {
			mg.Up = string(content)
		} else {
			mg.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mg := range byVersion {
		migrations = append(migrations, *mg)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
