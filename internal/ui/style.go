package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"

	"github.com/probekit/probekit/internal/updates"
)

// Style holds common output styling for CLI commands.
type Style struct {
	SuccessMark string
	FailMark    string
	WarnMark    string
	UpgradeMark string
	ReviewMark  string
	RejectMark  string
	Header      *color.Color
	Path        *color.Color
	Success     *color.Color
	Step        *color.Color
}

// NewStyle creates a new Style with standard colors.
func NewStyle() *Style {
	return &Style{
		SuccessMark: color.New(color.FgGreen).Sprint("✓"),
		FailMark:    color.New(color.FgRed).Sprint("✗"),
		WarnMark:    color.New(color.FgYellow).Sprint("⚠"),
		UpgradeMark: color.New(color.FgCyan).Sprint("↑"),
		ReviewMark:  color.New(color.FgMagenta).Sprint("?"),
		RejectMark:  color.New(color.FgYellow).Sprint("-"),
		Header:      color.New(color.FgCyan, color.Bold),
		Path:        color.New(color.FgCyan),
		Success:     color.New(color.FgGreen, color.Bold),
		Step:        color.New(color.FgYellow),
	}
}

// OutcomeIcon returns the icon for a classification outcome.
func (s *Style) OutcomeIcon(o updates.Outcome) string {
	switch o {
	case updates.OutcomeUnchanged:
		return s.SuccessMark
	case updates.OutcomeMinor, updates.OutcomeAutoUpdate:
		return s.UpgradeMark
	case updates.OutcomeReview:
		return s.ReviewMark
	case updates.OutcomeRejected:
		return s.RejectMark
	default:
		return " "
	}
}

// SetupColor picks the color profile for lipgloss and fatih/color from the
// terminal behind out. NO_COLOR and non-terminal output disable colors.
func SetupColor(out io.Writer) termenv.Profile {
	profile := termenv.NewOutput(out).EnvColorProfile()
	lipgloss.SetColorProfile(profile)
	color.NoColor = profile == termenv.Ascii
	return profile
}

// SetupStdoutColor is SetupColor for os.Stdout.
func SetupStdoutColor() termenv.Profile {
	return SetupColor(os.Stdout)
}

var (
	doneMarkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))   // green
	failMarkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))   // red
	rejectMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))   // yellow
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))  // light cyan
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	warnLogStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorLogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	noticeStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("5")).
			Padding(0, 1)
	cursorMark = "›"
)
