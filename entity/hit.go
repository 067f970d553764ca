package entity

// Source identifies the remote site a hit was scraped from
type Source string

const (
	SourceGetwater Source = "getwater"
	SourceCwy      Source = "cwy0675"
)

// Hit is a single search candidate pointing at a landing page,
// two hits are the same asset whenever their URL matches
type Hit struct {
	Title     string
	URL       string
	Source    Source
	Thumbnail string
	Score     *int // relevance, lower ranks first
}

func (hit Hit) String() string {
	return "[" + string(hit.Source) + "] " + hit.Title
}
