package dispatch

import (
	"net/url"
	"strings"

	"github.com/franciscod/campus-fetch/internal/model"
)

// rule maps a path marker to a resource kind.
type rule struct {
	marker string
	kind   model.ResourceKind
}

// rules is the priority-ordered classification table. The first marker
// contained in the URL path wins, so discuss.php must precede /mod/forum/.
var rules = []rule{
	{"/pluginfile.php/", model.KindFile},
	{"/mod/resource/", model.KindResource},
	{"/mod/url/", model.KindShortcut},
	{"/mod/folder/", model.KindFolder},
	{"/mod/forum/discuss.php", model.KindDiscussion},
	{"/mod/forum/", model.KindForum},
	{"/mod/page/", model.KindPage},
}

// coursePath is the in-root addressing pattern of sub-pages.
const coursePath = "/course/view.php"

// Classifier decides the resource kind of a link.
type Classifier struct {
	// Base is the site origin. Links to any other host are unhandled.
	// A nil Base accepts every host.
	Base *url.URL

	// RootID is the course id of the root being traversed. Only views of
	// that course are sub-pages; other courses are unhandled.
	RootID string
}

// Classify returns the kind of rawURL.
func (c Classifier) Classify(rawURL string) model.ResourceKind {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.KindUnhandled
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.KindUnhandled
	}
	if c.Base != nil && !strings.EqualFold(u.Host, c.Base.Host) {
		return model.KindUnhandled
	}

	for _, r := range rules {
		if strings.Contains(u.Path, r.marker) {
			return r.kind
		}
	}

	if strings.HasSuffix(u.Path, coursePath) && c.RootID != "" && u.Query().Get("id") == c.RootID {
		return model.KindSubPage
	}

	return model.KindUnhandled
}
