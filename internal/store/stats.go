package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/layered-memory/internal/model"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string           `json:"db_path"`
	DBSizeBytes    int64            `json:"db_size_bytes"`
	TotalResources int              `json:"total_resources"`
	Namespaces     []NamespaceStats `json:"namespaces"`
	Scopes         []ScopeStats     `json:"scopes"`
}

// NamespaceStats describes the resources under one id namespace.
type NamespaceStats struct {
	NS          string    `json:"ns"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
	Examples    []string  `json:"examples"`
}

// ScopeStats counts scope records that are still live and ones that have
// expired but not yet been rewritten.
type ScopeStats struct {
	Scope   model.ScopeType `json:"scope"`
	Live    int             `json:"live"`
	Expired int             `json:"expired"`
	Invalid int             `json:"invalid,omitempty"`
}

// Namespace returns the leading two colon-separated segments of a resource
// id, e.g. "discord:user" for "discord:user:123".
func Namespace(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 3 {
		return id
	}
	return parts[0] + ":" + parts[1]
}

// Stats returns database statistics. Scope records are classified as live
// or expired relative to now.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string, now time.Time) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	nss, err := s.ListNamespaces(ctx, 0)
	if err != nil {
		return st, err
	}
	st.Namespaces = nss
	for _, ns := range nss {
		st.TotalResources += ns.Count
	}

	st.Scopes, err = s.scopeStats(ctx, now)
	return st, err
}

// ListNamespaces returns resource counts grouped by namespace, largest first,
// each with up to examples of its most recently updated ids.
func (s *SQLiteStore) ListNamespaces(ctx context.Context, examples int) ([]NamespaceStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, updated_at FROM resources ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byNS := map[string]*NamespaceStats{}
	for rows.Next() {
		var id, updated string
		if err := rows.Scan(&id, &updated); err != nil {
			return nil, err
		}
		name := Namespace(id)
		ns, ok := byNS[name]
		if !ok {
			ns = &NamespaceStats{NS: name, Examples: []string{}}
			ns.LastUpdated, _ = time.Parse(time.RFC3339Nano, updated)
			byNS[name] = ns
		}
		ns.Count++
		if len(ns.Examples) < examples {
			ns.Examples = append(ns.Examples, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]NamespaceStats, 0, len(byNS))
	for _, ns := range byNS {
		out = append(out, *ns)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].NS < out[j].NS
	})
	return out, nil
}

func (s *SQLiteStore) scopeStats(ctx context.Context, now time.Time) ([]ScopeStats, error) {
	out := []ScopeStats{{Scope: model.ScopeGuild}, {Scope: model.ScopeChannel}, {Scope: model.ScopeThread}}
	for i := range out {
		rows, err := s.db.QueryContext(ctx,
			`SELECT metadata FROM resources WHERE id LIKE ? ESCAPE '\'`,
			likePrefix("discord:"+string(out[i].Scope)+":"))
		if err != nil {
			return nil, err
		}
		if err := countScopes(rows, &out[i], now); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func countScopes(rows *sql.Rows, st *ScopeStats, now time.Time) error {
	defer rows.Close()
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		var d model.Document
		if raw.Valid && json.Unmarshal([]byte(raw.String), &d) != nil {
			d = nil
		}
		mem, ok := model.DecodeScopeMemory(d, st.Scope)
		switch {
		case !ok:
			st.Invalid++
		case mem.Expired(now):
			st.Expired++
		default:
			st.Live++
		}
	}
	return rows.Err()
}
