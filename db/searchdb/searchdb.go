package searchdb

type DB interface {
	Index(documents []Document) error
	Search(queryString string, limit int) (*Response, error)
	GetDocCount() (uint64, error)
	Close() error
}
