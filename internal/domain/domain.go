package domain

const unknownAuthor = "Unknown"

type Book struct {
	Title string
	// Author is empty when the model could not determine it.
	Author string
}

func (b Book) HasAuthor() bool {
	return b.Author != ""
}

func (b Book) DisplayAuthor() string {
	if !b.HasAuthor() {
		return unknownAuthor
	}
	return b.Author
}

type EvidenceItem struct {
	URL  string
	Text string
}

// EvidenceSet is ordered by discovery.
type EvidenceSet []EvidenceItem

type SummaryStatus int

const (
	SummaryFound SummaryStatus = iota
	SummaryNotFound
	SummaryFailed
)

func (s SummaryStatus) String() string {
	switch s {
	case SummaryFound:
		return "found"
	case SummaryNotFound:
		return "not_found"
	case SummaryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Summary struct {
	Status    SummaryStatus
	Title     string
	Text      string
	SourceURL string
	Err       error
}
