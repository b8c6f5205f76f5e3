package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/nudriin/humbet-cli/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

// userMessage translates an error into the message shown to the user:
// typed API errors surface their HTTP detail, everything else is reported
// as a network problem.
func userMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s (%d %s)", apiErr.Detail, apiErr.Status, apiErr.StatusText)
	}
	return fmt.Sprintf("network error: %v", err)
}
