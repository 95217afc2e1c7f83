package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pdrpinto/gridastar"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)

	wallColor   = color.New(color.FgHiBlack)
	startColor  = color.New(color.FgGreen, color.Bold)
	targetColor = color.New(color.FgBlue, color.Bold)
	pathColor   = color.New(color.FgRed, color.Bold)
	closedColor = color.New(color.FgYellow)
	openColor   = color.New(color.FgHiYellow)
	emptyColor  = color.New(color.FgWhite)
)

const (
	glyphEmpty  = '.'
	glyphWall   = '#'
	glyphStart  = 'S'
	glyphTarget = 'T'
	glyphPath   = '*'
	glyphClosed = 'x'
	glyphOpen   = 'o'
)

// renderGrid prints one line per row. Path cells win over search state.
func renderGrid(w io.Writer, snap gridastar.GridSnapshot, path []gridastar.Point) {
	onPath := make(map[gridastar.Point]bool, len(path))
	for _, p := range path {
		onPath[p] = true
	}

	var line strings.Builder
	for y := 0; y < snap.Height; y++ {
		line.Reset()
		for x := 0; x < snap.Width; x++ {
			p := gridastar.Point{X: x, Y: y}
			glyph, c := cellGlyph(snap, p, onPath[p])
			line.WriteString(c.Sprint(string(glyph)))
		}
		_, _ = fmt.Fprintln(w, line.String())
	}
}

func cellGlyph(snap gridastar.GridSnapshot, p gridastar.Point, onPath bool) (rune, *color.Color) {
	cell := snap.At(p)
	switch {
	case p == snap.Start:
		return glyphStart, startColor
	case p == snap.Target:
		return glyphTarget, targetColor
	case onPath:
		return glyphPath, pathColor
	case cell.Wall:
		return glyphWall, wallColor
	case cell.Membership == gridastar.Closed:
		return glyphClosed, closedColor
	case cell.Membership == gridastar.Open:
		return glyphOpen, openColor
	default:
		return glyphEmpty, emptyColor
	}
}

func printLabelValue(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %s: ", label)
	_, _ = valueColor.Fprintln(w, value)
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
