package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/sideline/internal/annotate"
	"github.com/jwulff/sideline/internal/region"
	"github.com/jwulff/sideline/internal/ui"
)

// The frame panel stands in for the video: each terminal cell covers
// cellW x cellH display units, roughly the pixel shape of a terminal cell.
const (
	cellW = 8.0
	cellH = 16.0

	// frameTop is the screen row of the first frame grid row: header,
	// status bar, divider and the panel title come first.
	frameTop  = 4
	frameLeft = 1
)

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header, status, 2 dividers, input, notice, footer, padding
	return max(10, m.height-8)
}

func (m Model) leftPanelWidth() int {
	if m.width == 0 {
		return 50
	}
	return max(30, m.width*55/100)
}

func (m Model) rightPanelWidth() int {
	if m.width == 0 {
		return 40
	}
	return max(20, m.width-m.leftPanelWidth()-1)
}

// frameSize returns the frame grid size in cells, keeping the video's aspect
// ratio when the panel is tall enough.
func (m Model) frameSize() (cols, rows int) {
	cols = max(8, m.leftPanelWidth()-2)
	aspect := 9.0 / 16.0
	if st := m.view.Playback; st.NativeWidth > 0 && st.NativeHeight > 0 {
		aspect = float64(st.NativeHeight) / float64(st.NativeWidth)
	}
	rows = int(float64(cols)*cellW*aspect/cellH + 0.5)
	rows = min(max(rows, 3), max(3, m.contentHeight()/2))
	return cols, rows
}

// framePoint converts a screen position to display coordinates, clamped to
// the frame grid. inside reports whether the position was on the grid.
func (m Model) framePoint(x, y int) (p region.Point, inside bool) {
	cols, rows := m.frameSize()
	gx, gy := x-frameLeft, y-frameTop
	inside = gx >= 0 && gx < cols && gy >= 0 && gy < rows
	gx = min(max(gx, 0), cols)
	gy = min(max(gy, 0), rows)
	return region.Point{X: float64(gx) * cellW, Y: float64(gy) * cellH}, inside
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.inputKind != inputNone {
		sections = append(sections, m.input.View())
	}
	if bar := m.renderNoticeBar(); bar != "" {
		sections = append(sections, bar)
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SIDELINE")

	var source string
	if src := m.view.Playback.Source; src != "" {
		source = ui.DimStyle.Render("  " + filepath.Base(src))
	}

	var teams string
	if m.view.Features.TeamTagging {
		teams = ui.TeamStyle.Render(fmt.Sprintf("  %s vs %s", m.view.Teams[0], m.view.Teams[1]))
	}

	return title + source + teams
}

func (m Model) renderStatusBar() string {
	if !m.connected {
		if m.reconnecting {
			return ui.ErrorTextStyle.Render("● " + m.statusText)
		}
		return ui.DimStyle.Render("○ " + m.statusText)
	}

	st := m.view.Playback
	if !st.Loaded() {
		return ui.DimStyle.Render("○ NO VIDEO  press O to open a file or folder")
	}

	var parts []string
	if st.Playing {
		parts = append(parts, ui.PlayingStyle.Render("▶ PLAYING"))
	} else {
		parts = append(parts, ui.PausedStyle.Render("❚❚ PAUSED"))
	}
	parts = append(parts, fmt.Sprintf("%s / %s", annotate.FormatTime(st.CurrentTime), annotate.FormatTime(st.Duration)))
	parts = append(parts, ui.StatusStyle.Render(fmt.Sprintf("%.2fx", st.Rate)))
	if st.Muted() {
		parts = append(parts, ui.StatusStyle.Render("muted"))
	} else {
		parts = append(parts, ui.StatusStyle.Render(fmt.Sprintf("vol %d%%", int(st.Volume*100+0.5))))
	}

	gameClock := m.view.GameClock
	if gameClock == "" {
		gameClock = annotate.NotAvailable
	}
	parts = append(parts, "clock "+ui.ClockStyle.Render(gameClock))

	if m.view.Features.ClockRecognition {
		parts = append(parts, m.renderClockReader())
	}
	if m.view.Features.TeamTagging {
		team := m.view.Team
		if team == "" {
			team = "none"
		}
		parts = append(parts, "team "+ui.TeamStyle.Render(team))
	}

	return strings.Join(parts, ui.DividerStyle.Render("  │  "))
}

func (m Model) renderClockReader() string {
	var s string
	if m.view.ClockBusy {
		s = m.spinner.View() + " reading"
	} else {
		s = ui.DimStyle.Render("ocr")
	}
	if m.view.AutoRead {
		s += " " + ui.AutoBadgeStyle.Render("AUTO")
	}
	if m.view.ClockText != "" {
		s += ui.DimStyle.Render(fmt.Sprintf(" last %q", m.view.ClockText))
	}
	return s
}

func (m Model) renderMainContent() string {
	leftW := m.leftPanelWidth()
	rightW := m.rightPanelWidth()
	contentH := m.contentHeight()

	left := m.renderLeftColumn(leftW, contentH)
	right := m.renderRightColumn(rightW, contentH)

	divider := ui.DividerStyle.Render("│")

	var rows []string
	for i := 0; i < contentH; i++ {
		rows = append(rows, padRight(left[i], leftW)+divider+right[i])
	}
	return strings.Join(rows, "\n")
}

// renderLeftColumn renders the frame panel above the action panel.
func (m Model) renderLeftColumn(width, height int) []string {
	var lines []string
	if m.view.Features.ClockRecognition {
		lines = append(lines, m.renderFramePanel()...)
		lines = append(lines, "")
	}
	lines = append(lines, m.renderActionPanel(width)...)
	return fitLines(lines, height)
}

func (m Model) renderFramePanel() []string {
	cols, rows := m.frameSize()
	v := m.view

	title := "FRAME"
	switch v.RegionState {
	case region.Selecting:
		title += ui.RubberBandStyle.Render("  drag over the game clock, esc to cancel")
	case region.Dragging:
		title += ui.RubberBandStyle.Render("  release to select")
	case region.Selected:
		title += ui.DimStyle.Render("  r reselect  R read now  a auto")
	default:
		title += ui.DimStyle.Render("  r select clock region")
	}
	lines := []string{ui.PanelTitleStyle.Render(title)}

	var show bool
	style := ui.RegionStyle
	switch v.RegionState {
	case region.Dragging:
		show, style = true, ui.RubberBandStyle
	case region.Selected:
		show = true
	}

	for r := 0; r < rows; r++ {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", frameLeft))
		run := 0
		inRun := false
		flush := func() {
			if run == 0 {
				return
			}
			if inRun {
				b.WriteString(style.Render(strings.Repeat("█", run)))
			} else {
				b.WriteString(ui.FrameStyle.Render(strings.Repeat("·", run)))
			}
			run = 0
		}
		for c := 0; c < cols; c++ {
			center := region.Point{X: (float64(c) + 0.5) * cellW, Y: (float64(r) + 0.5) * cellH}
			in := show && v.Region.Contains(center)
			if in != inRun {
				flush()
				inRun = in
			}
			run++
		}
		flush()
		lines = append(lines, b.String())
	}
	return lines
}

func (m Model) renderActionPanel(width int) []string {
	lines := []string{ui.PanelTitleStyle.Render("ACTIONS")}
	for i, a := range m.view.Actions {
		key := " "
		if i < 9 {
			key = fmt.Sprintf("%d", i+1)
		}
		line := " " + ui.FooterKeyStyle.Render(key) + " " + ui.ActionStyle(a.Color).Render("●") + " " + a.Label
		lines = append(lines, truncateToWidth(line, width))
	}
	lines = append(lines, " "+ui.FooterKeyStyle.Render("o")+" "+ui.ActionStyle(annotate.CustomColor).Render("●")+" Custom...")
	return lines
}

// renderRightColumn renders the annotation list, with the folder listing
// below it when a folder is open.
func (m Model) renderRightColumn(width, height int) []string {
	if len(m.view.Entries) == 0 {
		return fitLines(m.renderAnnotationPanel(width, height), height)
	}
	folderH := max(4, height/3)
	annH := height - folderH - 1
	lines := m.renderAnnotationPanel(width, annH)
	lines = append(lines, ui.DividerStyle.Render(strings.Repeat("─", width)))
	lines = append(lines, m.renderFolderPanel(width, folderH)...)
	return fitLines(lines, height)
}

func (m Model) renderAnnotationPanel(width, height int) []string {
	anns := m.view.Annotations
	title := fmt.Sprintf("ANNOTATIONS (%d)", len(anns))
	if m.focusedPanel == FocusAnnotations {
		title = ui.PanelTitleActiveStyle.Render(title)
	} else {
		title = ui.PanelTitleStyle.Render(title)
	}
	lines := []string{title}

	if len(anns) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No annotations yet..."))
		lines = append(lines, ui.DimStyle.Render("  Press 1-9 to tag the current moment"))
		return fitLines(lines, height)
	}

	visible := max(1, height-1)
	start := scrollStart(m.selectedAnn, len(anns), visible)
	for i := start; i < len(anns) && i < start+visible; i++ {
		a := anns[i]
		cursor := "  "
		label := a.Label
		if i == m.selectedAnn && m.focusedPanel == FocusAnnotations {
			cursor = ui.SelectedStyle.Render("> ")
			label = ui.SelectedStyle.Render(label)
		}
		line := cursor +
			ui.TimestampStyle.Render(fmt.Sprintf("%6s", a.FormattedTime())) + " " +
			ui.ClockStyle.Render(fmt.Sprintf("%-6s", a.GameClock)) + " " +
			ui.ActionStyle(a.Color).Render("●") + " " + label
		if a.Team != "" {
			line += ui.TeamStyle.Render("  " + a.Team)
		}
		lines = append(lines, truncateToWidth(line, width))
	}
	return fitLines(lines, height)
}

func (m Model) renderFolderPanel(width, height int) []string {
	title := fmt.Sprintf("FOLDER %s (%d)", filepath.Base(m.view.Folder), len(m.view.Entries))
	if m.focusedPanel == FocusFolder {
		title = ui.PanelTitleActiveStyle.Render(title)
	} else {
		title = ui.PanelTitleStyle.Render(title)
	}
	lines := []string{truncateToWidth(title, width)}

	visible := max(1, height-1)
	start := scrollStart(m.selectedEntry, len(m.view.Entries), visible)
	for i := start; i < len(m.view.Entries) && i < start+visible; i++ {
		e := m.view.Entries[i]
		marker := "  "
		if i == m.view.Current {
			marker = ui.PlayingStyle.Render("▶ ")
		}
		name := e.Name
		if i == m.selectedEntry && m.focusedPanel == FocusFolder {
			name = ui.SelectedStyle.Render("> " + name)
		} else {
			name = "  " + name
		}
		lines = append(lines, truncateToWidth(marker+name, width))
	}
	return fitLines(lines, height)
}

func (m Model) renderNoticeBar() string {
	switch {
	case m.view.Notice != "":
		return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.view.Notice)
	case m.flash != "" && m.flashErr:
		return ui.ErrorTextStyle.Render(m.flash)
	case m.flash != "":
		return ui.NoticeStyle.Render(m.flash)
	}
	return ""
}

func (m Model) renderFooter() string {
	var parts []string

	if m.inputKind != inputNone {
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Save"))
		parts = append(parts, ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Cancel"))
		return strings.Join(parts, "  ")
	}

	if m.view.Playback.Loaded() {
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Play"))
		parts = append(parts, ui.FooterKeyStyle.Render("←→")+ui.FooterDescStyle.Render(" Seek"))
		parts = append(parts, ui.FooterKeyStyle.Render(",.")+ui.FooterDescStyle.Render(" Speed"))
		parts = append(parts, ui.FooterKeyStyle.Render("g")+ui.FooterDescStyle.Render(" Clock"))
		if m.view.Features.TeamTagging {
			parts = append(parts, ui.FooterKeyStyle.Render("t")+ui.FooterDescStyle.Render(" Team"))
		}
		parts = append(parts, ui.FooterKeyStyle.Render("x/X/S")+ui.FooterDescStyle.Render(" Export"))
		parts = append(parts, ui.FooterKeyStyle.Render("y")+ui.FooterDescStyle.Render(" Copy"))
		parts = append(parts, ui.FooterKeyStyle.Render("n")+ui.FooterDescStyle.Render(" Name"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("O")+ui.FooterDescStyle.Render(" Open"))
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

// scrollStart returns the first visible index keeping selected in view.
func scrollStart(selected, total, visible int) int {
	if total <= visible || selected < visible {
		return 0
	}
	return min(selected-visible+1, total-visible)
}

func fitLines(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:height]
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	// Styled strings are cut by the ANSI-aware truncation in lipgloss.
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
