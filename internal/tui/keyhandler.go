package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

// binding returns the full key string for a modifier binding.
func (kh *KeyHandler) binding(b string) string {
	return kh.modifierKey + b
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewQuery:
		return true
	case ViewSources:
		return kh.app.sourceFilter.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	b := kh.config.Keys.Bindings

	switch key {
	case "esc":
		return kh.navigateBack()
	case "ctrl+c":
		return kh.app, tea.Quit
	case "enter":
		return kh.handleTextInputEnter()
	}

	if kh.app.view == ViewQuery {
		switch key {
		case "tab", "down":
			kh.app.focusQueryField(kh.app.queryFocus + 1)
			return kh.app, nil
		case "shift+tab", "up":
			kh.app.focusQueryField(kh.app.queryFocus - 1)
			return kh.app, nil
		case kh.binding(b.Mode):
			return kh.toggleMode()
		case kh.binding(b.OrderBy):
			return kh.cycleOrder()
		case kh.binding(b.Sources):
			return kh.openSourcePicker()
		}
		return kh.delegateToTextInput(msg)
	}

	// source filter
	switch key {
	case "tab", "down":
		if len(kh.app.sourceList.Items()) > 0 {
			kh.app.sourceFilter.Blur()
		}
		return kh.app, nil
	case kh.binding(b.Refresh):
		return kh.app, kh.app.loadSources(true)
	}
	return kh.delegateToTextInput(msg)
}

func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewQuery:
		switch kh.app.queryFocus {
		case fieldKeywords:
			kh.app.keywordsInput, cmd = kh.app.keywordsInput.Update(msg)
		case fieldFrom:
			kh.app.fromInput, cmd = kh.app.fromInput.Update(msg)
		case fieldTo:
			kh.app.toInput, cmd = kh.app.toInput.Update(msg)
		}
		return kh.app, cmd

	case ViewSources:
		before := kh.app.sourceFilter.Value()
		kh.app.sourceFilter, cmd = kh.app.sourceFilter.Update(msg)
		if after := kh.app.sourceFilter.Value(); after != before {
			return kh.app, tea.Batch(cmd, kh.app.filterSources(after))
		}
		return kh.app, cmd
	}

	return kh.app, nil
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewQuery:
		return kh.submitQuery()
	case ViewSources:
		return kh.toggleSelectedSource()
	}
	return kh.app, nil
}

// submitQuery applies the form. A changed date range dispatches by itself;
// otherwise the form acts as an explicit search.
func (kh *KeyHandler) submitQuery() (tea.Model, tea.Cmd) {
	a := kh.app

	from, err := query.ParseDate(a.fromInput.Value())
	if err != nil {
		a.err = err
		return a, nil
	}
	to, err := query.ParseDate(a.toInput.Value())
	if err != nil {
		a.err = err
		return a, nil
	}
	a.err = nil

	a.session.SetKeywords(strings.TrimSpace(a.keywordsInput.Value()))

	q := a.session.Query()
	datesChanged := !query.Day(from).Equal(query.Day(q.From)) || !query.Day(to).Equal(query.Day(q.To))

	d := a.session.SetDateRange(from, to)
	if !datesChanged {
		d = a.session.TriggerSearch()
	}

	a.blurQueryFields()
	a.view = ViewResults
	return a, a.dispatch(d)
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.config.Keys.Bindings

	switch key {
	case "ctrl+c":
		return kh.app, tea.Quit, true
	case b.Quit:
		return kh.app, tea.Quit, true
	case b.Back:
		m, c := kh.navigateBack()
		return m, c, true
	case b.Help:
		kh.app.showHelp = !kh.app.showHelp
		return kh.app, nil, true
	case kh.binding(b.Search):
		m, c := kh.openQueryForm()
		return m, c, true
	case kh.binding(b.Mode):
		m, c := kh.toggleMode()
		return m, c, true
	case kh.binding(b.OrderBy):
		m, c := kh.cycleOrder()
		return m, c, true
	case kh.binding(b.Sources):
		m, c := kh.openSourcePicker()
		return m, c, true
	case kh.binding(b.Dismiss):
		kh.app.session.DismissError()
		kh.app.err = nil
		return kh.app, nil, true
	}

	switch kh.app.view {
	case ViewResults:
		return kh.handleResultsCustomKeys(key)
	case ViewReader:
		return kh.handleReaderCustomKeys(key)
	case ViewSources:
		return kh.handleSourcesCustomKeys(key)
	}

	return kh.app, nil, false
}

func (kh *KeyHandler) handleResultsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.config.Keys.Bindings

	switch key {
	case kh.binding(b.NextPage):
		return kh.app, kh.turnPage(1), true
	case kh.binding(b.PrevPage):
		return kh.app, kh.turnPage(-1), true
	case kh.binding(b.Refresh):
		return kh.app, kh.app.dispatch(kh.app.session.TriggerSearch()), true
	case kh.binding(b.Open):
		if item, ok := kh.app.resultList.SelectedItem().(articleItem); ok {
			return kh.app, kh.app.openURL(item.article.URL), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleReaderCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == kh.binding(kh.config.Keys.Bindings.Open) && kh.app.currentArticle != nil {
		return kh.app, kh.app.openURL(kh.app.currentArticle.URL), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleSourcesCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == kh.binding(kh.config.Keys.Bindings.Refresh) {
		return kh.app, kh.app.loadSources(true), true
	}
	return kh.app, nil, false
}

// turnPage moves the highlighted row's source by delta pages.
func (kh *KeyHandler) turnPage(delta int) tea.Cmd {
	id := kh.app.selectedSourceID()
	if id == "" {
		return nil
	}
	for _, s := range kh.app.session.Query().Sources {
		if s.ID != id {
			continue
		}
		page := s.Page + delta
		if page < 1 {
			return nil
		}
		kh.app.setStatus(MsgPage(id, page), StatusInfo)
		return kh.app.dispatch(kh.app.session.SetPage(id, page))
	}
	return nil
}

func (kh *KeyHandler) toggleMode() (tea.Model, tea.Cmd) {
	next := query.Everything
	if kh.app.session.Query().Mode == query.Everything {
		next = query.TopHeadlines
	}
	return kh.app, kh.app.dispatch(kh.app.session.SetMode(next))
}

func (kh *KeyHandler) cycleOrder() (tea.Model, tea.Cmd) {
	next := kh.app.session.Query().OrderBy.Next()
	return kh.app, kh.app.dispatch(kh.app.session.SetOrderBy(next))
}

func (kh *KeyHandler) openQueryForm() (tea.Model, tea.Cmd) {
	kh.app.syncInputs()
	kh.app.view = ViewQuery
	kh.app.showHelp = false
	kh.app.focusQueryField(fieldKeywords)
	return kh.app, nil
}

func (kh *KeyHandler) openSourcePicker() (tea.Model, tea.Cmd) {
	a := kh.app
	a.blurQueryFields()
	a.view = ViewSources
	a.showHelp = false
	a.sourceFilter.Focus()

	if len(a.sources) == 0 && !a.sourcesLoading {
		return a, a.loadSources(false)
	}
	return a, a.filterSources(a.sourceFilter.Value())
}

func (kh *KeyHandler) toggleSelectedSource() (tea.Model, tea.Cmd) {
	a := kh.app
	item, ok := a.sourceList.SelectedItem().(sourceItem)
	if !ok {
		return a, nil
	}

	var cmd tea.Cmd
	if a.session.Query().HasSource(item.source.ID) {
		cmd = a.dispatch(a.session.RemoveSource(item.source.ID))
	} else {
		cmd = a.dispatch(a.session.AddSource(item.source.ID))
	}
	a.markSelectedSources()
	return a, cmd
}

func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a := kh.app

	switch a.view {
	case ViewResults:
		if msg.String() == "enter" {
			if item, ok := a.resultList.SelectedItem().(articleItem); ok {
				return kh.openReader(item.article)
			}
			return a, nil
		}
		a.resultList, cmd = a.resultList.Update(msg)

	case ViewReader:
		a.viewport, cmd = a.viewport.Update(msg)

	case ViewSources:
		switch msg.String() {
		case "enter", " ":
			return kh.toggleSelectedSource()
		case "tab", "/":
			a.sourceFilter.Focus()
			return a, nil
		case "up":
			if a.sourceList.Index() == 0 {
				a.sourceFilter.Focus()
				return a, nil
			}
		}
		a.sourceList, cmd = a.sourceList.Update(msg)
	}

	return a, cmd
}

func (kh *KeyHandler) openReader(article news.Article) (tea.Model, tea.Cmd) {
	a := kh.app
	a.currentArticle = &article
	a.loadingArticle = true
	a.view = ViewReader
	return a, tea.Batch(a.spinner.Tick, a.renderArticle(article))
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app
	switch a.view {
	case ViewQuery:
		a.blurQueryFields()
		a.view = ViewResults
	case ViewReader:
		a.currentArticle = nil
		a.loadingArticle = false
		a.view = ViewResults
	case ViewSources:
		a.sourceFilter.Blur()
		a.view = ViewResults
		a.refreshResults()
	case ViewResults:
		a.showHelp = false
	}
	return a, nil
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.config.Keys.Bindings

	switch kh.app.view {
	case ViewResults:
		return []string{
			kh.binding(b.Search) + ": search",
			kh.binding(b.Mode) + ": mode",
			kh.binding(b.Sources) + ": sources",
			kh.binding(b.NextPage) + "/" + b.PrevPage + ": page",
			kh.binding(b.Open) + ": open",
			b.Help + ": keys",
		}
	case ViewQuery:
		return []string{"enter: search", "tab: next field", kh.binding(b.Mode) + ": mode", kh.binding(b.OrderBy) + ": order", "esc: cancel"}
	case ViewReader:
		return []string{kh.binding(b.Open) + ": open in browser", "esc: back"}
	case ViewSources:
		return []string{"enter: add/remove", kh.binding(b.Refresh) + ": reload", "esc: back"}
	default:
		return []string{}
	}
}

// KeyMap describes every binding for the help overlay.
func (kh *KeyHandler) KeyMap() KeyMap {
	b := kh.config.Keys.Bindings
	bind := func(keys, desc string) key.Binding {
		return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
	}

	return KeyMap{
		Search:   bind(kh.binding(b.Search), "edit query"),
		Mode:     bind(kh.binding(b.Mode), "toggle mode"),
		OrderBy:  bind(kh.binding(b.OrderBy), "cycle order"),
		Sources:  bind(kh.binding(b.Sources), "pick sources"),
		NextPage: bind(kh.binding(b.NextPage), "next page"),
		PrevPage: bind(kh.binding(b.PrevPage), "previous page"),
		Open:     bind(kh.binding(b.Open), "open in browser"),
		Refresh:  bind(kh.binding(b.Refresh), "refresh"),
		Dismiss:  bind(kh.binding(b.Dismiss), "dismiss error"),
		Back:     bind(b.Back, "back"),
		Help:     bind(b.Help, "toggle keys"),
		Quit:     bind(b.Quit, "quit"),
	}
}

type KeyMap struct {
	Search   key.Binding
	Mode     key.Binding
	OrderBy  key.Binding
	Sources  key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Open     key.Binding
	Refresh  key.Binding
	Dismiss  key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Sources, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Mode, k.OrderBy, k.Sources},
		{k.NextPage, k.PrevPage, k.Refresh, k.Open},
		{k.Dismiss, k.Back, k.Help, k.Quit},
	}
}
