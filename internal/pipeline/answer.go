package pipeline

import "strings"

// Fixed replies for document search degradation.
const (
	SearchNotReadyReply = "Sorry, currently I do not have a response. Discovery initialization is in progress. Please try again later."
	SearchFailedReply   = "Sorry, currently I do not have a response. Our Customer representative will get in touch with you shortly."
	NoAnswerReply       = "Sorry I currently do not have an appropriate response for your query. Our customer care executive will call you in 24 hours."
)

// BestAnswer picks the answer line out of an FAQ passage. The corpus is laid
// out as question or header lines followed by answer lines, so the first
// non-blank line after a question wins. Without a question the last plain
// line seen is used.
func BestAnswer(passage string) (string, bool) {
	var best string
	questionFound := false
	for _, raw := range strings.Split(passage, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, "?") || strings.Contains(line, "<h1") {
			questionFound = true
			continue
		}
		best = line
		if questionFound {
			break
		}
	}
	return best, best != ""
}
