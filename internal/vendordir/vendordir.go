// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vendordir manages the local vendor directory: a SQLite database of
// service vendors searched by embedding similarity, with a keyword fallback
// when no embedder is available.
package vendordir

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sourcing-engine/internal/embed"
)

// SimilarityThreshold is the minimum cosine similarity for a vector match.
// Mirrors a cosine-distance cutoff of 0.45.
const SimilarityThreshold = 0.55

// Vendor is one directory entry.
type Vendor struct {
	ID          int64
	Name        string
	Description string
	Tagline     string
	Website     string
	Email       string
	Phone       string
	ImageURL    string
	Category    string
	ServiceArea string
	Routes      []string
	Capacity    int
	Embedding   []float32
}

// Match is a vendor with its similarity to the search query.
type Match struct {
	Vendor
	Similarity float64
}

// Directory is the vendor database handle.
type Directory struct {
	db       *sql.DB
	embedder embed.Embedder
}

// Open opens or creates the vendor database at path, creating the schema if
// needed. The embedder may be nil; searches then use keyword matching only.
func Open(path string, embedder embed.Embedder) (*Directory, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating vendor db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening vendor database: %w", err)
	}

	d := &Directory{db: db, embedder: embedder}
	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vendor schema: %w", err)
	}
	return d, nil
}

// Close releases the database connection.
func (d *Directory) Close() error { return d.db.Close() }

func (d *Directory) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			tagline TEXT,
			website TEXT,
			email TEXT,
			phone TEXT,
			image_url TEXT,
			category TEXT,
			service_area TEXT,
			routes TEXT,
			capacity INTEGER,
			embedding BLOB
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name)`,
		`CREATE INDEX IF NOT EXISTS idx_vendors_category ON vendors(category)`,
	}
	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces a vendor keyed by name. When the vendor carries
// no embedding and an embedder is configured, one is computed from the
// vendor's descriptive text.
func (d *Directory) Upsert(ctx context.Context, v Vendor) error {
	if v.Name == "" {
		return fmt.Errorf("vendor name is required")
	}

	if len(v.Embedding) == 0 && d.embedder != nil {
		text := strings.TrimSpace(strings.Join([]string{v.Name, v.Tagline, v.Description, v.Category, v.ServiceArea}, " "))
		vec, err := d.embedder.EmbedText(ctx, text)
		if err != nil {
			return fmt.Errorf("embedding vendor %s: %w", v.Name, err)
		}
		v.Embedding = vec
	}

	routes, err := json.Marshal(v.Routes)
	if err != nil {
		return fmt.Errorf("encoding routes for vendor %s: %w", v.Name, err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO vendors (name, description, tagline, website, email, phone, image_url, category, service_area, routes, capacity, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			description=excluded.description, tagline=excluded.tagline,
			website=excluded.website, email=excluded.email, phone=excluded.phone,
			image_url=excluded.image_url, category=excluded.category,
			service_area=excluded.service_area, routes=excluded.routes,
			capacity=excluded.capacity, embedding=excluded.embedding`,
		v.Name, v.Description, v.Tagline, v.Website, v.Email, v.Phone,
		v.ImageURL, v.Category, v.ServiceArea, string(routes), v.Capacity, encodeVector(v.Embedding))
	if err != nil {
		return fmt.Errorf("upserting vendor %s: %w", v.Name, err)
	}
	return nil
}

// Count returns the number of vendors in the directory.
func (d *Directory) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT count(*) FROM vendors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vendors: %w", err)
	}
	return n, nil
}

// Search finds vendors matching the query. With an embedder configured the
// query is embedded, optionally blended 70/30 with the full context query,
// and compared against stored vendor embeddings by cosine similarity;
// matches below SimilarityThreshold are dropped. Without an embedder, or when
// embedding fails, keyword overlap against the vendor text is used instead.
func (d *Directory) Search(ctx context.Context, query, contextQuery string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 15
	}

	if d.embedder != nil {
		queryVec, err := d.queryEmbedding(ctx, query, contextQuery)
		if err == nil && len(queryVec) > 0 {
			return d.vectorSearch(ctx, queryVec, limit)
		}
	}
	return d.keywordSearch(ctx, query, limit)
}

// queryEmbedding embeds the intent query, blending in the full context query
// at 30% weight when it differs. Intent stays dominant while vendors matching
// locations or other context still get a boost.
func (d *Directory) queryEmbedding(ctx context.Context, query, contextQuery string) ([]float32, error) {
	ctxQ := strings.TrimSpace(contextQuery)
	if ctxQ != "" && !strings.EqualFold(ctxQ, strings.TrimSpace(query)) {
		vecs, err := d.embedder.EmbedTexts(ctx, []string{query, ctxQ})
		if err != nil {
			return nil, err
		}
		if len(vecs) < 2 {
			return nil, fmt.Errorf("expected 2 embeddings, got %d", len(vecs))
		}
		return blend(vecs[0], vecs[1], 0.7, 0.3), nil
	}
	return d.embedder.EmbedText(ctx, query)
}

func (d *Directory) vectorSearch(ctx context.Context, queryVec []float32, limit int) ([]Match, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, description, tagline, website, email, phone, image_url, category, service_area, routes, capacity, embedding
		 FROM vendors WHERE embedding IS NOT NULL AND length(embedding) > 0`)
	if err != nil {
		return nil, fmt.Errorf("querying vendors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		v, blob, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		v.Embedding = decodeVector(blob)

		sim := cosine(queryVec, v.Embedding)
		if sim < SimilarityThreshold {
			continue
		}
		matches = append(matches, Match{Vendor: v, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning vendors: %w", err)
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (d *Directory) keywordSearch(ctx context.Context, query string, limit int) ([]Match, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, description, tagline, website, email, phone, image_url, category, service_area, routes, capacity, embedding
		 FROM vendors`)
	if err != nil {
		return nil, fmt.Errorf("querying vendors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		v, blob, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		v.Embedding = decodeVector(blob)

		haystack := strings.ToLower(strings.Join([]string{v.Name, v.Tagline, v.Description, v.Category, v.ServiceArea}, " "))
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		ratio := float64(hits) / float64(len(tokens))
		matches = append(matches, Match{Vendor: v, Similarity: 0.4 + 0.4*ratio})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning vendors: %w", err)
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVendor(rows rowScanner) (Vendor, []byte, error) {
	var v Vendor
	var desc, tagline, website, email, phone, image, category, area, routes sql.NullString
	var capacity sql.NullInt64
	var blob []byte
	if err := rows.Scan(&v.ID, &v.Name, &desc, &tagline, &website, &email, &phone, &image, &category, &area, &routes, &capacity, &blob); err != nil {
		return Vendor{}, nil, fmt.Errorf("scanning vendor row: %w", err)
	}
	if routes.String != "" {
		if err := json.Unmarshal([]byte(routes.String), &v.Routes); err != nil {
			return Vendor{}, nil, fmt.Errorf("decoding routes for vendor %s: %w", v.Name, err)
		}
	}
	v.Description = desc.String
	v.Tagline = tagline.String
	v.Website = website.String
	v.Email = email.String
	v.Phone = phone.String
	v.ImageURL = image.String
	v.Category = category.String
	v.ServiceArea = area.String
	v.Capacity = int(capacity.Int64)
	return v, blob, nil
}

func sortMatches(matches []Match) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Similarity > matches[j-1].Similarity; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func tokenize(s string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		if len(tok) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

// blend combines two vectors with the given weights and L2-normalizes the
// result so cosine similarity behaves.
func blend(a, b []float32, wa, wb float64) []float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float32, n)
	var norm float64
	for i := 0; i < n; i++ {
		v := wa*float64(a[i]) + wb*float64(b[i])
		out[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	if len(blob) < 4 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
