package store

import (
	"fmt"
	"strings"
)

// Filter describes a structured purchase query. A nil/empty field means no
// constraint on that dimension; the zero Filter matches everything.
type Filter struct {
	DateFrom       *string  `json:"dateFrom,omitempty"`
	DateTo         *string  `json:"dateTo,omitempty"`
	CategoryIDs    []string `json:"categoryIds,omitempty"`
	Vendor         *string  `json:"vendor,omitempty"`
	MinAmountCents *int64   `json:"minAmountCents,omitempty"`
	MaxAmountCents *int64   `json:"maxAmountCents,omitempty"`
	TagIDs         []string `json:"tagIds,omitempty"`
	Query          *string  `json:"query,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Offset         int      `json:"offset,omitempty"`
}

// CompileFilter translates a Filter into a parameterized WHERE fragment over
// the purchases table (aliased p) plus its bound values. An empty fragment
// means unconditional. Values are always parameterized, never interpolated.
//
// Tag filtering is set-intersection: a purchase matches only if it carries
// every tag in TagIDs. Free text matches name/vendor/notes, through the
// full-text index when ftsAvailable is set and LIKE otherwise.
func CompileFilter(f Filter, ftsAvailable bool) (string, []any) {
	var where []string
	var args []any

	if f.DateFrom != nil {
		where = append(where, "p.purchase_date >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		where = append(where, "p.purchase_date <= ?")
		args = append(args, *f.DateTo)
	}
	if catIDs := dedupe(f.CategoryIDs); len(catIDs) > 0 {
		where = append(where, fmt.Sprintf("p.category_id IN (%s)", placeholders(len(catIDs))))
		for _, id := range catIDs {
			args = append(args, id)
		}
	}
	if f.Vendor != nil {
		where = append(where, "p.vendor LIKE ?")
		args = append(args, "%"+*f.Vendor+"%")
	}
	if f.MinAmountCents != nil {
		where = append(where, "p.amount_cents >= ?")
		args = append(args, *f.MinAmountCents)
	}
	if f.MaxAmountCents != nil {
		where = append(where, "p.amount_cents <= ?")
		args = append(args, *f.MaxAmountCents)
	}
	if tagIDs := dedupe(f.TagIDs); len(tagIDs) > 0 {
		// The intersection count must match the number of distinct ids, or a
		// repeated id could never be satisfied.
		where = append(where, fmt.Sprintf(
			"p.id IN (SELECT purchase_id FROM purchase_tags WHERE tag_id IN (%s) GROUP BY purchase_id HAVING COUNT(DISTINCT tag_id) = ?)",
			placeholders(len(tagIDs))))
		for _, id := range tagIDs {
			args = append(args, id)
		}
		args = append(args, len(tagIDs))
	}
	if f.Query != nil && strings.TrimSpace(*f.Query) != "" {
		q := strings.TrimSpace(*f.Query)
		if ftsAvailable {
			where = append(where, "p.rowid IN (SELECT rowid FROM purchases_fts WHERE purchases_fts MATCH ?)")
			args = append(args, ftsPhrase(q))
		} else {
			where = append(where, "(p.name LIKE ? OR p.vendor LIKE ? OR p.notes LIKE ?)")
			like := "%" + q + "%"
			args = append(args, like, like, like)
		}
	}

	return strings.Join(where, " AND "), args
}

// dedupe drops repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ftsPhrase quotes the user's text as a single FTS5 phrase so punctuation in
// the query cannot break the MATCH syntax.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
