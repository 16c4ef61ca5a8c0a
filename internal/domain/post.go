package domain

// Post is one esa.io document, owned transiently by the pipeline for the
// duration of a single summarization.
type Post struct {
	Number    int
	Title     string
	BodyMD    string
	Category  string
	UpdatedAt string
	URL       string // canonical post URL
}
