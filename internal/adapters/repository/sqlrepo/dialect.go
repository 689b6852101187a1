package sqlrepo

import (
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
)

// Table is the name of the measurements table.
const Table = "promstore"

// Dialect holds the SQL flavour specific bits.
type Dialect struct {
	Name        string
	Driver      string
	migrations  goose.Dialect
	quote       func(string) string
	placeholder func(n int) string
	upsertTail  string
	finiteOnly  bool
}

// Postgres uses ON CONFLICT upserts and $n placeholders.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "postgres",
	migrations:  goose.DialectPostgres,
	quote:       func(s string) string { return `"` + s + `"` },
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	upsertTail:  `ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value"`,
}

// MySQL uses ON DUPLICATE KEY upserts and ? placeholders. DOUBLE columns
// cannot hold NaN or infinities.
var MySQL = Dialect{
	Name:        "mysql",
	Driver:      "mysql",
	migrations:  goose.DialectMySQL,
	quote:       func(s string) string { return "`" + s + "`" },
	placeholder: func(int) string { return "?" },
	upsertTail:  "ON DUPLICATE KEY UPDATE `value` = VALUES(`value`)",
	finiteOnly:  true,
}

// DialectByName resolves "postgres" or "mysql".
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}

type queries struct {
	upsert    string
	selectOne string
	selectIn  string
}

func (d Dialect) queries() queries {
	t, k, v := d.quote(Table), d.quote("key"), d.quote("value")
	return queries{
		upsert: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s) %s",
			t, k, v, d.placeholder(1), d.placeholder(2), d.upsertTail),
		selectOne: fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", v, t, k, d.placeholder(1)),
		selectIn:  fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN ", k, v, t, k),
	}
}

// inList renders "(p1, p2, ...)" for n keys.
func (d Dialect) inList(n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 1; i <= n; i++ {
		if i > 1 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.placeholder(i))
	}
	sb.WriteByte(')')
	return sb.String()
}
