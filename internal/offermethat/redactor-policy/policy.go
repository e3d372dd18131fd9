// Sanitize policies for seller-authored content. Labels, placeholders and
// custom question texts are stripped to plain text; listing descriptions keep
// a small UGC subset.
package policy

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()
var UgcPolicy *bluemonday.Policy = bluemonday.UGCPolicy()

func init() {
	colorRegexp := regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|inherit)$`)

	UgcPolicy.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	UgcPolicy.AllowAttrs("start").Matching(regexp.MustCompile(`^\d+$`)).OnElements("ol")
}
