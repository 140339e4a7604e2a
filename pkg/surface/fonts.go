package surface

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"drawpanel/pkg/logx"
)

// FontStyle is a bit set of Bold and Italic.
type FontStyle int

const (
	Plain  FontStyle = 0
	Bold   FontStyle = 1
	Italic FontStyle = 2
)

// family names accepted by SetFont, lower-cased.
var families = map[string][4][]byte{
	"sansserif": {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"monospaced": {
		gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF,
	},
}

var aliases = map[string]string{
	"sans":       "sansserif",
	"sans-serif": "sansserif",
	"serif":      "sansserif",
	"dialog":     "sansserif",
	"go":         "sansserif",
	"mono":       "monospaced",
	"monospace":  "monospaced",
	"courier":    "monospaced",
}

var (
	parsedMu sync.Mutex
	parsed   = map[string]*opentype.Font{}
)

func loadFace(family string, style FontStyle, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", size)
	}
	name := strings.ToLower(strings.TrimSpace(family))
	if a, ok := aliases[name]; ok {
		name = a
	}
	faces, ok := families[name]
	if !ok {
		logx.Logger().Debug("unknown font family, using sans-serif", "family", family)
		name = "sansserif"
		faces = families[name]
	}
	idx := int(style & (Bold | Italic))

	key := fmt.Sprintf("%s/%d", name, idx)
	parsedMu.Lock()
	f, ok := parsed[key]
	if !ok {
		var err error
		f, err = opentype.Parse(faces[idx])
		if err != nil {
			parsedMu.Unlock()
			return nil, fmt.Errorf("parsing font %s: %w", key, err)
		}
		parsed[key] = f
	}
	parsedMu.Unlock()

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
