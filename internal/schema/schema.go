// Package schema declares the table contract of both stores.
//
// The contract lives in manifest.cue, embedded at build time and decoded with
// the CUE runtime. Nothing is discovered by introspecting a live database:
// Validate probes each declared table once at startup and reports every
// mismatch together, so a drifted schema fails the run before any change-log
// entry is touched.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/multierr"

	"github.com/roach88/snexsync/internal/sqldb"
)

//go:embed manifest.cue
var manifestSrc string

// Side names one of the two stores.
type Side string

const (
	SideLegacy Side = "legacy"
	SideApp    Side = "app"
)

// Logical table names in the legacy store.
const (
	ChangeLog       = "change_log"
	Targets         = "targets"
	TargetNames     = "target_names"
	Classifications = "classifications"
	Photometry      = "photometry"
	Spectra         = "spectra"
	Groups          = "groups"
)

// Logical table names in the application store.
const (
	AppTarget            = "target"
	AppTargetName        = "target_name"
	AppTargetNameLink    = "target_name_link"
	AppTargetExtra       = "target_extra"
	AppReducedDatum      = "reduced_datum"
	AppReducedDatumExtra = "reduced_datum_extra"
	AppGroup             = "group"
	AppContentType       = "content_type"
	AppPermission        = "permission"
	AppPermissionGrant   = "permission_grant"
)

// Table is one declared table: its physical name and the columns snexsync uses.
type Table struct {
	Name    string   `json:"table"`
	Columns []string `json:"columns"`
}

// Tables maps logical names to declared tables.
type Tables map[string]Table

// Name returns the physical name of a logical table, or the logical name
// itself if it is not declared.
func (t Tables) Name(logical string) string {
	if tbl, ok := t[logical]; ok {
		return tbl.Name
	}
	return logical
}

// Logical returns the logical name for a physical table name.
func (t Tables) Logical(physical string) (string, bool) {
	for logical, tbl := range t {
		if tbl.Name == physical {
			return logical, true
		}
	}
	return "", false
}

// Sorted returns the logical names in lexical order.
func (t Tables) Sorted() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manifest is the decoded contract for both stores.
type Manifest struct {
	Legacy Tables
	App    Tables
}

// Load decodes the embedded manifest.
func Load() (*Manifest, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(manifestSrc, cue.Filename("manifest.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	m := &Manifest{}
	if err := value.LookupPath(cue.ParsePath(string(SideLegacy))).Decode(&m.Legacy); err != nil {
		return nil, fmt.Errorf("decode legacy tables: %w", err)
	}
	if err := value.LookupPath(cue.ParsePath(string(SideApp))).Decode(&m.App); err != nil {
		return nil, fmt.Errorf("decode app tables: %w", err)
	}
	return m, nil
}

// Tables returns the declared tables of one side.
func (m *Manifest) Tables(side Side) Tables {
	if side == SideApp {
		return m.App
	}
	return m.Legacy
}

// Override renames physical tables. Keys are logical names; an unknown
// logical name is an error so a typo in configuration is not silently ignored.
func (m *Manifest) Override(side Side, physical map[string]string) error {
	tables := m.Tables(side)
	for logical, name := range physical {
		tbl, ok := tables[logical]
		if !ok {
			return fmt.Errorf("override %s.%s: unknown table", side, logical)
		}
		if name == "" {
			return fmt.Errorf("override %s.%s: empty table name", side, logical)
		}
		tbl.Name = name
		tables[logical] = tbl
	}
	return nil
}

// Queryer is the subset of *sql.DB / *sqlx.DB used for probing.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Validate probes every declared table of one side with a zero-row select of
// its declared columns. All failures are combined into one error; use
// multierr.Errors to list them.
func Validate(ctx context.Context, db Queryer, d sqldb.Dialect, side Side, tables Tables) error {
	var errs error
	for _, logical := range tables.Sorted() {
		tbl := tables[logical]
		q, args, err := d.Builder().
			Select(d.Columns(tbl.Columns...)...).
			From(d.Quote(tbl.Name)).
			Where("1 = 0").
			ToSql()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: build probe: %w", side, logical, err))
			continue
		}
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.%s (%s): %w", side, logical, tbl.Name, err))
			continue
		}
		rows.Close()
	}
	return errs
}
