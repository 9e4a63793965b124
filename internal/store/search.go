// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"
)

// SearchOptions filters a document search.
type SearchOptions struct {
	// SessionID restricts the search to one session.
	SessionID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// DocumentHit is one document matching a search.
type DocumentHit struct {
	SessionID  string
	DocumentID string
	Title      string
	Snippet    string
}

// SearchDocuments runs a full-text query over the titles, abstracts, and
// full texts of stored documents. Results are ranked by relevance when the
// FTS5 index is available, otherwise by session and insertion order.
func (s *Store) SearchDocuments(ctx context.Context, query string, opts SearchOptions) ([]DocumentHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	if s.fts {
		qb.WriteString(
			`SELECT d.session_id, d.doc_id, COALESCE(d.title, ''),
				snippet(documents_fts, -1, '[', ']', '...', 12)
			FROM documents_fts
			JOIN documents d ON d.rowid = documents_fts.rowid
			WHERE documents_fts MATCH ?`)
		args = append(args, query)
	} else {
		like := "%" + query + "%"
		qb.WriteString(
			`SELECT d.session_id, d.doc_id, COALESCE(d.title, ''), substr(COALESCE(d.abstract, ''), 1, 120)
			FROM documents d
			WHERE (d.title LIKE ? OR d.abstract LIKE ? OR d.full_text LIKE ?)`)
		args = append(args, like, like, like)
	}

	if opts.SessionID != "" {
		qb.WriteString(` AND d.session_id = ?`)
		args = append(args, opts.SessionID)
	}

	if s.fts {
		qb.WriteString(` ORDER BY documents_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY d.session_id, d.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var h DocumentHit
		if err := rows.Scan(&h.SessionID, &h.DocumentID, &h.Title, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
