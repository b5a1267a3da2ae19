package extract

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sharePolicy     *bluemonday.Policy
	sharePolicyOnce sync.Once
)

// SanitizeForShare returns a copy of the layers hardened for read-only
// shared previews: the markup layer is run through a UGC sanitizer and the
// script layer is dropped entirely. The owner's live preview never goes
// through this path.
func SanitizeForShare(layers Layers) Layers {
	sharePolicyOnce.Do(func() {
		sharePolicy = bluemonday.UGCPolicy()
	})

	return Layers{
		HTML: sharePolicy.Sanitize(layers.HTML),
		CSS:  layers.CSS,
		JS:   "",
	}
}
