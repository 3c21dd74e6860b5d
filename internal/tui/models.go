package tui

type View int

const (
	ViewResults View = iota
	ViewQuery
	ViewReader
	ViewSources
)

func (v View) String() string {
	switch v {
	case ViewResults:
		return "results"
	case ViewQuery:
		return "query"
	case ViewReader:
		return "reader"
	case ViewSources:
		return "sources"
	default:
		return "unknown"
	}
}
