package logx

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles used to color each level's tag.
// Grounded on the teacher's internal/help/styles.go Styles struct.
type styles struct {
	Error   lipgloss.Style
	Warn    lipgloss.Style
	Info    lipgloss.Style
	Debug   lipgloss.Style
	Verbose lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")), // red
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),            // yellow
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),            // cyan
		Debug:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),            // grey
		Verbose: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),            // grey
	}
}

func (s styles) forLevel(l Level) lipgloss.Style {
	switch l {
	case LevelError:
		return s.Error
	case LevelWarn:
		return s.Warn
	case LevelInfo:
		return s.Info
	case LevelDebug:
		return s.Debug
	case LevelVerbose:
		return s.Verbose
	default:
		return s.Info
	}
}
