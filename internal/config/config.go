// Package config loads application configuration from Viper, layering the
// config file and MIETFLOW_ environment variables over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/engine"
	"github.com/rentwerk/mietflow/internal/ledger"
)

// App is the fully resolved application configuration.
type App struct {
	Engine    engine.Config
	HistoryDB string
}

// Load resolves the configuration from the given Viper instance. A nil or
// empty instance yields the defaults.
func Load(v *viper.Viper) (App, error) {
	app := App{
		Engine:    engine.DefaultConfig(),
		HistoryDB: defaultHistoryPath(),
	}
	if v == nil {
		return app, nil
	}

	if s := v.GetString("sheets.tenants"); s != "" {
		app.Engine.Workbook.PreferredSheet = s
	}
	if s := v.GetString("sheets.audit"); s != "" {
		app.Engine.Workbook.AuditSheet = s
	}
	if s := v.GetString("sheets.owner_column"); s != "" {
		app.Engine.Workbook.OwnerColumn = s
	}

	if m := v.GetStringMapStringSlice("slots"); len(m) > 0 {
		slots, err := ledger.SlotsFromConfig(m)
		if err != nil {
			return App{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		app.Engine.Slots = slots
	}

	if xs := v.GetStringSlice("classify.authority_payers"); len(xs) > 0 {
		app.Engine.Classifier.AuthorityPayers = xs
	}
	if xs := v.GetStringSlice("match.owner_keywords"); len(xs) > 0 {
		app.Engine.Matcher.OwnerKeywords = xs
	}

	cols := &app.Engine.Columns
	for key, dst := range map[string]*string{
		"statement.columns.date":     &cols.Date,
		"statement.columns.payee":    &cols.Payee,
		"statement.columns.purpose":  &cols.Purpose,
		"statement.columns.category": &cols.Category,
		"statement.columns.object":   &cols.Object,
		"statement.columns.amount":   &cols.Amount,
	} {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	if s := v.GetString("history.db"); s != "" {
		app.HistoryDB = ExpandPath(s)
	}
	return app, nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mietflow_history.db"
	}
	return filepath.Join(home, ".local", "share", "mietflow", "history.db")
}

// ExpandPath expands a leading ~ and $VAR environment references in a path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}
