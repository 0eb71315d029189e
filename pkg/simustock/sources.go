package simustock

import "strings"

// ExtractSources keeps the chunks that carry a URI, in input order.
// Duplicates pass through; chunks without a title get defaultTitle.
func ExtractSources(chunks []GroundingChunk, defaultTitle string) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		uri := strings.TrimSpace(chunk.URI)
		if uri == "" {
			continue
		}
		title := strings.TrimSpace(chunk.Title)
		if title == "" {
			title = defaultTitle
		}
		sources = append(sources, Source{Title: title, URI: uri})
	}
	return sources
}
