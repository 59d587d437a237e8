package ports

import "context"

type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// PageFetcher performs one GET. Non-2xx responses come back as an error
// together with whatever page data was read.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}
