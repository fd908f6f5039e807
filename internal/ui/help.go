package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ait/internal/input"
)

func renderHelp(width, height int) string {
	lines := []string{styleHint.Render("press any key to return")}
	for _, sec := range input.HelpSections() {
		lines = append(lines, "")
		lines = append(lines, styleTitle.Render(sec.Title))
		for _, b := range sec.Bindings {
			h := b.Help()
			if h.Key == "" {
				continue
			}
			line := fmt.Sprintf("  %-8s %s", h.Key, h.Desc)
			lines = append(lines, runewidth.Truncate(line, width, ""))
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
