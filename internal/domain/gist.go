package domain

// GistFile is the subset of a gist file's metadata the report needs.
type GistFile struct {
	Filename string
	Language string // empty when GitHub did not detect one
	Size     int
}

// Gist is a gist as returned by the listing endpoint. It is never mutated after fetching.
type Gist struct {
	ID          string
	Description string
	Public      bool
	// CreatedAt and UpdatedAt are the API timestamps exactly as sent; rendering shows them
	// verbatim when they do not parse.
	CreatedAt string
	UpdatedAt string
	HTMLURL   string
	// Files is ordered by filename.
	Files []GistFile
}

// FilterPublic drops every gist not explicitly marked public and reports how many were dropped.
// Order is preserved and applying it twice yields the same result as once.
func FilterPublic(gists []Gist) ([]Gist, int) {
	kept := make([]Gist, 0, len(gists))
	for _, g := range gists {
		if g.Public {
			kept = append(kept, g)
		}
	}
	return kept, len(gists) - len(kept)
}
