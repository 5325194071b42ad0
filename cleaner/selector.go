package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectText parses rawHTML and returns the text content of the first
// element matching selector.
//
// found is false when nothing matches. A matching element with no text
// yields ("", true, nil), which callers treat as "present but empty".
func SelectText(rawHTML, selector string) (text string, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", false, err
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}

	return sel.Text(), true, nil
}
