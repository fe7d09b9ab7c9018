package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mabego/chat-mysql/internal/assert"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(Files, "sql/*.sql")
	assert.NilError(t, err)

	ups, downs := 0, 0
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups++
			_, err := fs.Stat(Files, strings.TrimSuffix(f, ".up.sql")+".down.sql")
			assert.NilError(t, err)
		case strings.HasSuffix(f, ".down.sql"):
			downs++
		default:
			t.Errorf("unexpected file %s", f)
		}
	}

	assert.Equal(t, ups, downs)
	assert.Equal(t, ups, 2)
}

func TestSourceVersions(t *testing.T) {
	src, err := iofs.New(Files, "sql")
	assert.NilError(t, err)
	defer src.Close()

	first, err := src.First()
	assert.NilError(t, err)
	assert.Equal(t, first, uint(1))

	next, err := src.Next(first)
	assert.NilError(t, err)
	assert.Equal(t, next, uint(2))
}

func TestSessionsTableMatchesStore(t *testing.T) {
	b, err := fs.ReadFile(Files, "sql/000002_create_sessions_table.up.sql")
	assert.NilError(t, err)

	// scs/mysqlstore reads and writes these columns.
	for _, column := range []string{"token CHAR(43)", "data BLOB", "expiry TIMESTAMP(6)"} {
		assert.StringContains(t, string(b), column)
	}
}
