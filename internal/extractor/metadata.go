package extractor

// Metadata is the one shape every engine info document is decoded into. The
// engine emits wildly varying payloads: a single post carries url/thumbnail at
// the top level, a carousel repeats the same fields under entries, and some
// sites add a separate thumbnails list. Optional fields simply stay empty.
type Metadata struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Entries    []Metadata  `json:"entries"`
}

// Thumbnail is one element of the engine's thumbnails list.
type Thumbnail struct {
	URL string `json:"url"`
}
