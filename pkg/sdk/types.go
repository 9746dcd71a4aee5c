package studyrag

import "github.com/campuskit/studyrag/internal/domain"

// Chunk is one piece of study material to index.
type Chunk struct {
	ID      string
	Content string
	Tags    map[string]string
}

// Document is a retrieved passage.
type Document struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status      string            // "ok", "degraded", "error"
	Checks      map[string]string // component -> "ok"/"error"
	Collections []string
}

func documentsFromDomain(docs []domain.Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = documentFromDomain(d)
	}
	return out
}

func documentFromDomain(d domain.Document) Document {
	meta := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		switch v.Kind() {
		case domain.KindNumber:
			meta[k] = v.Num()
		case domain.KindBool:
			meta[k] = v.IsTrue()
		default:
			meta[k] = v.Str()
		}
	}
	return Document{
		ID:       d.ID(),
		Content:  d.Content,
		Score:    d.Score(),
		Metadata: meta,
	}
}
