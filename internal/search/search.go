package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPerson   ResultType = "person"
	ResultQuestion ResultType = "question"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Area    string     `json:"area,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	FilterArea string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// PersonRecord is the data indexed for a directory profile.
type PersonRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Bio       string   `json:"bio"`
	Education string   `json:"education"`
	Skills    []string `json:"skills"`
	Areas     []string `json:"areas"`
}

// QuestionRecord is the data indexed for an approved question.
type QuestionRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}
