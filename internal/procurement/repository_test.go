package procurement

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var columnNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func splitColumns(t *testing.T, list string) []string {
	t.Helper()
	var cols []string
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		require.True(t, columnNamePattern.MatchString(name), "bad column name %q", name)
		cols = append(cols, name)
	}
	return cols
}

// The repository and the migration describe the same tables independently, so
// a rename on one side surfaces here instead of at runtime.
func TestMigrationDefinesRepositoryColumns(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "scripts", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	schema := string(ddl)

	for _, col := range splitColumns(t, orderColumns) {
		require.Contains(t, schema, col, "purchase_orders column %s missing from migration", col)
	}
	for _, col := range splitColumns(t, lineColumns) {
		require.Contains(t, schema, col, "purchase_order_lines column %s missing from migration", col)
	}
}
