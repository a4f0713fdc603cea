package storage

import (
	"database/sql"
	"encoding/json"

	"caisse/internal/remote"
)

type kind int

const (
	kindText kind = iota
	kindInt
	kindJSON
)

type column struct {
	name string
	kind kind
}

// schema mirrors migrations/000001_init.up.sql. Record keys outside it are
// ignored on write.
var schema = map[remote.Collection][]column{
	remote.Clients: {
		{"id", kindText}, {"name", kindText}, {"type", kindText}, {"email", kindText},
		{"phone", kindText}, {"default_fee", kindInt}, {"notes", kindText}, {"created_at", kindText},
	},
	remote.PaymentTargets: {
		{"id", kindText}, {"client_id", kindText}, {"title", kindText}, {"total_amount", kindInt},
		{"created_at", kindText}, {"due_date", kindText}, {"status", kindText},
	},
	remote.PaymentParts: {
		{"id", kindText}, {"payment_target_id", kindText}, {"amount", kindInt}, {"date", kindText},
		{"note", kindText}, {"split_live", kindInt}, {"split_business", kindInt}, {"split_save", kindInt},
	},
	remote.Expenses: {
		{"id", kindText}, {"user_id", kindText}, {"amount", kindInt}, {"category", kindText},
		{"date", kindText}, {"note", kindText}, {"type", kindText},
	},
	remote.Feedbacks: {
		{"id", kindText}, {"client_id", kindText}, {"rating", kindInt}, {"comment", kindText},
		{"created_at", kindText}, {"token", kindText},
	},
	remote.Settings: {
		{"id", kindText}, {"currency", kindText}, {"ratios", kindJSON}, {"expense_categories", kindJSON},
	},
	remote.OtherIncome: {
		{"id", kindText}, {"amount", kindInt}, {"date", kindText}, {"source", kindText}, {"note", kindText},
		{"split_live", kindInt}, {"split_business", kindInt}, {"split_save", kindInt}, {"created_at", kindText},
	},
}

// uniqueColumns are the columns an upsert may name as conflict target.
var uniqueColumns = map[remote.Collection][]string{
	remote.Feedbacks: {"id", "token"},
}

func conflictAllowed(c remote.Collection, key string) bool {
	if key == "id" {
		return true
	}
	for _, k := range uniqueColumns[c] {
		if k == key {
			return true
		}
	}
	return false
}

func lookupColumn(c remote.Collection, name string) (column, bool) {
	for _, col := range schema[c] {
		if col.name == name {
			return col, true
		}
	}
	return column{}, false
}

// toSQL converts a record value for storage. nil stays NULL.
func (col column) toSQL(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.kind {
	case kindInt:
		return remote.AsInt64(v), nil
	case kindJSON:
		if s, ok := v.(string); ok {
			return s, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return remote.AsString(v), nil
	}
}

// scanTarget returns a destination for the column and a func that reads
// the scanned value back, reporting false for NULL.
func (col column) scanTarget() (any, func() (any, bool)) {
	switch col.kind {
	case kindInt:
		var n sql.NullInt64
		return &n, func() (any, bool) { return n.Int64, n.Valid }
	default:
		var s sql.NullString
		return &s, func() (any, bool) {
			if !s.Valid {
				return nil, false
			}
			if col.kind == kindJSON {
				var out any
				if err := json.Unmarshal([]byte(s.String), &out); err != nil {
					return s.String, true
				}
				return out, true
			}
			return s.String, true
		}
	}
}
