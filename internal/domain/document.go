package domain

// contentFields is the fixed, ordered list of payload fields checked when
// resolving a document's primary content.
var contentFields = []string{"page_content", "text", "content"}

// Document is a retrieved passage: content plus typed metadata.
// Metadata always carries "id" (string) and "score" (number).
type Document struct {
	Content  string
	Metadata map[string]Value
}

// DocumentFromHit converts a merged hit into a Document. The payload becomes
// metadata; content is resolved from the first known content field present.
func DocumentFromHit(h ScoredHit) Document {
	var content string
	var contentKey string
	for _, f := range contentFields {
		if v, ok := h.Payload[f]; ok && v.Str() != "" {
			content = v.Str()
			contentKey = f
			break
		}
	}

	meta := make(map[string]Value, len(h.Payload)+2)
	for k, v := range h.Payload {
		if k == contentKey {
			continue
		}
		meta[k] = v
	}
	meta["id"] = String(h.ID)
	meta["score"] = Number(h.Score)

	return Document{Content: content, Metadata: meta}
}

// ID returns the document identifier from metadata.
func (d Document) ID() string { return d.Metadata["id"].Str() }

// Score returns the similarity score from metadata.
func (d Document) Score() float64 { return d.Metadata["score"].Num() }

// CloneMetadata returns a copy of the metadata map, preallocated for extra
// entries.
func (d Document) CloneMetadata(extra int) map[string]Value {
	m := make(map[string]Value, len(d.Metadata)+extra)
	for k, v := range d.Metadata {
		m[k] = v
	}
	return m
}
