package searchdb

type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URI     string `json:"uri"`
}

type Result struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URI     string  `json:"uri"`
	Content string  `json:"content"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}
