package ui

// Status glyphs shared by tables and the dashboard.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolPending  = "○" // enabled, no reading yet
	SymbolOnline   = "●"
	SymbolDisabled = "⊘"
)
