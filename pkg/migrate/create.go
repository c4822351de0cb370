package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
)

const versionLayout = "20060102150405"

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: write forward DDL here. Keep it valid on both postgres and sqlite.
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: undo the Up block.
-- +goose StatementEnd
`

// Slug turns a free-form migration name into the snake_case suffix used in
// file names.
func Slug(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes <dir>/<version>_<slug>.sql stamped with clk's
// current UTC time. The generated file always passes ValidateDir.
func CreateSQLMigration(clk clock.Clock, dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if clk == nil {
		clk = clock.Real()
	}

	version := clk.Now().UTC().Format(versionLayout)
	path := filepath.Join(dir, version+"_"+slug+".sql")
	body := fmt.Sprintf(sqlTemplate, slug)
	if err := validateAnnotations(filepath.Base(path), body); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("migration %s already exists", path)
		}
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}

// VersionOf returns the timestamp prefix of a migration file name.
func VersionOf(filename string) (time.Time, error) {
	m := sqlFileRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid migration filename %q", filename)
	}
	return time.Parse(versionLayout, m[1])
}
