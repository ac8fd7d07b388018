package inspect

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hazyhaar/skilllog/logstore"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Width(7).
			Align(lipgloss.Center)

	badges = map[logstore.Type]lipgloss.Style{
		logstore.TypeLog:   badgeBase.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")),
		logstore.TypeInfo:  badgeBase.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("25")),
		logstore.TypeDebug: badgeBase.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("242")),
		logstore.TypeWarn:  badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
		logstore.TypeError: badgeBase.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("160")),
	}
)

func badge(t logstore.Type) string {
	s, ok := badges[t]
	if !ok {
		s = badgeBase
	}
	return s.Render(string(t))
}
