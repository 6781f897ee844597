package output

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/tanq16/radiograb/internal/utils"
	"golang.org/x/term"
)

// FormatProgress renders size, elapsed time and throughput of a recording.
func FormatProgress(written int64, elapsed time.Duration, rateKBs float64) string {
	return fmt.Sprintf("%s %s %s %s %s %.2f KB/s %s",
		StyleSymbols["bullet"],
		utils.FormatBytes(uint64(max(written, 0))),
		StyleSymbols["bullet"],
		utils.FormatElapsed(elapsed),
		StyleSymbols["bullet"],
		rateKBs,
		StyleSymbols["bullet"])
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24 // Default fallback height
	}
	return height
}

func wrapText(text string, indent int) []string {
	maxWidth := getTerminalWidth() - indent - 2
	if maxWidth <= 10 {
		maxWidth = 80
	}
	if utf8.RuneCountInString(text) <= maxWidth {
		return []string{text}
	}
	var lines []string
	currentLine := ""
	currentWidth := 0
	for _, r := range text {
		if currentWidth+1 > maxWidth {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = 1
		} else {
			currentLine += string(r)
			currentWidth++
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}
	return lines
}
