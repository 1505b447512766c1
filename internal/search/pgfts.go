package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across users and approved questions
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// People sub-query
	if q.FilterType == "" || q.FilterType == ResultPerson {
		personWhere := "u.fts @@ " + tsQuery
		if q.FilterArea != "" {
			personWhere += fmt.Sprintf(` AND EXISTS (
				SELECT 1 FROM user_skills us
				JOIN skills s ON s.id = us.skill_id
				JOIN expertise_areas ea ON ea.id = s.expertise_area_id
				WHERE us.user_id = u.id AND ea.name = $%d
			)`, argN)
			args = append(args, q.FilterArea)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'person'::text AS type, u.id, u.display_name AS title,
				ts_headline('english', coalesce(u.bio, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(u.fts, %s) AS rank
			FROM users u
			WHERE %s`, tsQuery, tsQuery, personWhere))
	}

	// Questions sub-query; pending questions never surface in search.
	if q.FilterType == "" || q.FilterType == ResultQuestion {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'question'::text AS type, qs.id, qs.title,
				ts_headline('english', coalesce(qs.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ts_rank(qs.fts, %s) AS rank
			FROM questions qs
			WHERE qs.approved = TRUE AND qs.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PersonRecord, []QuestionRecord, error) {
	userRows, err := p.db.QueryContext(ctx, `
		SELECT u.id, u.display_name, coalesce(u.bio, ''), coalesce(u.education, ''),
			coalesce(array_agg(DISTINCT s.name) FILTER (WHERE s.name IS NOT NULL), '{}'),
			coalesce(array_agg(DISTINCT ea.name) FILTER (WHERE ea.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_skills us ON us.user_id = u.id
		LEFT JOIN skills s ON s.id = us.skill_id
		LEFT JOIN expertise_areas ea ON ea.id = s.expertise_area_id
		GROUP BY u.id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load people: %w", err)
	}
	defer userRows.Close()

	people := make([]PersonRecord, 0)
	for userRows.Next() {
		var pr PersonRecord
		var skills, areas []byte
		if err := userRows.Scan(&pr.ID, &pr.Name, &pr.Bio, &pr.Education, &skills, &areas); err != nil {
			return nil, nil, fmt.Errorf("scan person: %w", err)
		}
		pr.Skills = parseTextArray(skills)
		pr.Areas = parseTextArray(areas)
		people = append(people, pr)
	}
	if err := userRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate people: %w", err)
	}

	questionRows, err := p.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.content, u.display_name
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE q.approved = TRUE
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}
	defer questionRows.Close()

	questions := make([]QuestionRecord, 0)
	for questionRows.Next() {
		var qr QuestionRecord
		if err := questionRows.Scan(&qr.ID, &qr.Title, &qr.Content, &qr.Author); err != nil {
			return nil, nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, qr)
	}
	if err := questionRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate questions: %w", err)
	}

	return people, questions, nil
}

// parseTextArray decodes a Postgres text[] literal like {a,"b c"} into a slice.
func parseTextArray(raw []byte) []string {
	s := strings.Trim(string(raw), "{}")
	if s == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, cur.String())
	return out
}
