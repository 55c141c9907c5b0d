package dashboard

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard on the terminal until the user quits or ctx is
// cancelled. The collector keeps polling on its own schedule; the dashboard
// only renders what it publishes.
func Run(ctx context.Context, src Source, reg Registry, opts ...Option) error {
	model := NewModel(src, reg, append(opts, WithContext(ctx))...)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
