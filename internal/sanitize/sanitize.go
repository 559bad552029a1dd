// Package sanitize strips markup from user-authored free text so stored
// templates are never rendered as unintended formatting later.
package sanitize

import "regexp"

var (
	imageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe     = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	emphasisRe = regexp.MustCompile("[*_`~/]")
)

// Clean removes embedded-image markup, then embedded-link markup, then
// the remaining emphasis characters, repeating until the text stops
// changing. A single pass is not enough: stripping an emphasis
// character can complete link markup that the link pattern missed, as
// in "[a]*(b)". Every substitution only deletes, so the loop
// terminates. Idempotent and never fails; the result may be empty.
func Clean(text string) string {
	for {
		next := imageRe.ReplaceAllString(text, "")
		next = linkRe.ReplaceAllString(next, "")
		next = emphasisRe.ReplaceAllString(next, "")
		if next == text {
			return next
		}
		text = next
	}
}
