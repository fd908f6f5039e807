package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ait/internal/input"
)

// linesPerItem is the number of terminal lines each item occupies.
const linesPerItem = 2

// ListOffset is the first visible item that keeps cursor in a list of
// the given height.
func ListOffset(cursor, height int) int {
	visibleItems := height / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if cursor < visibleItems {
		return 0
	}
	return cursor - visibleItems + 1
}

func renderOverlay(f Frame, l layout) string {
	h := l.transcriptH - 1 // title row
	if h < 1 {
		h = 1
	}
	if f.Mode != input.ModeHistory || l.contentW < 60 {
		body := styleTitle.Render(f.ListTitle) + "\n" + renderList(f.Items, f.ListCursor, l.contentW, h)
		return styleActiveBorder.Width(l.contentW).Height(l.transcriptH).Render(body)
	}

	// history: list on the left, preview on the right
	total := l.contentW + 2
	listW := total*40/100 - 2
	previewW := total - listW - 4
	list := styleTitle.Render(f.ListTitle) + "\n" + renderList(f.Items, f.ListCursor, listW, h)
	left := styleActiveBorder.Width(listW).Height(l.transcriptH).Render(list)

	var preview []string
	for _, line := range strings.Split(f.Preview, "\n") {
		preview = append(preview, wrapText(line, previewW)...)
	}
	if len(preview) > l.transcriptH {
		preview = preview[:l.transcriptH]
	}
	right := stylePanelBorder.Width(previewW).Height(l.transcriptH).Render(strings.Join(preview, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// renderList renders items with scrolling so the cursor stays visible.
func renderList(items []Item, cursor, width, height int) string {
	if len(items) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("Nothing here")
	}

	var lines []string
	for i := ListOffset(cursor, height); i < len(items); i++ {
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatItem(items[i], width, i == cursor)...)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// formatItem formats a single item as two lines:
//
//	line 1: [>] tag  title
//	line 2:    detail (dimmed)
func formatItem(it Item, width int, selected bool) []string {
	tag := it.Tag
	tagW := runewidth.StringWidth(tag)
	if tag != "" {
		tag = styleListTag.Render(tag) + " "
		tagW++
	}
	mark := ""
	if it.Marked {
		mark = "* "
		tagW += 2
	}

	title := strings.ReplaceAll(it.Title, "\n", " ")
	titleMax := width - 2 - tagW
	if titleMax < 0 {
		titleMax = 0
	}
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "")
	}

	var line1 string
	if selected {
		line1 = styleListSelected.Render("> ") + mark + tag + styleListSelected.Render(title)
	} else {
		line1 = "  " + mark + tag + styleListNormal.Render(title)
	}

	detail := strings.ReplaceAll(it.Detail, "\n", " ")
	detail = strings.ReplaceAll(detail, "\t", " ")
	detailMax := width - 4 // indent
	if detailMax < 0 {
		detailMax = 0
	}
	if runewidth.StringWidth(detail) > detailMax {
		detail = runewidth.Truncate(detail, detailMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(detail)

	return []string{line1, line2}
}
