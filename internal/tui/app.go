package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/search"
	"github.com/pders01/newsdesk/internal/session"
)

// SourceCatalog lists the sources the picker offers.
type SourceCatalog interface {
	Sources(ctx context.Context, refresh bool) ([]news.ProviderSource, bool, error)
}

// SourceIndex filters the catalog by free text.
type SourceIndex interface {
	search.Searcher
	search.Indexer
}

type URLOpener interface {
	Open(url string) error
}

// Deps are the collaborators of the App. Catalog, Index and Opener may be
// nil; the related features are then disabled.
type Deps struct {
	Context context.Context
	Session *session.Session
	Fetcher session.Fetcher
	Catalog SourceCatalog
	Index   SourceIndex
	Opener  URLOpener
}

const queryBarHeight = 3

// Query form fields, in focus order.
const (
	fieldKeywords = iota
	fieldFrom
	fieldTo
	fieldCount
)

type App struct {
	ctx        context.Context
	config     *config.Config
	session    *session.Session
	fetcher    session.Fetcher
	catalog    SourceCatalog
	index      SourceIndex
	opener     URLOpener
	keyHandler *KeyHandler

	resultList    list.Model
	sourceList    list.Model
	sourceFilter  textinput.Model
	keywordsInput textinput.Model
	fromInput     textinput.Model
	toInput       textinput.Model
	queryFocus    int
	viewport      viewport.Model
	spinner       spinner.Model
	help          help.Model
	showHelp      bool

	view            View
	width           int
	height          int
	currentArticle  *news.Article
	loadingArticle  bool
	sources         []news.ProviderSource
	sourcesLoading  bool
	status          string
	statusKind      StatusKind
	err             error
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func NewApp(cfg *config.Config, deps Deps) *App {
	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› news"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(false)
	resultList.SetShowHelp(false)
	resultList.Styles.Title = TitleStyle

	sourceList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	sourceList.Title = "› sources"
	sourceList.SetShowStatusBar(false)
	sourceList.SetFilteringEnabled(false)
	sourceList.SetShowHelp(false)
	sourceList.Styles.Title = TitleStyle

	sf := textinput.New()
	sf.Placeholder = "Filter sources..."

	kw := textinput.New()
	kw.Placeholder = "Keywords..."

	from := textinput.New()
	from.Placeholder = "YYYY-MM-DD"
	from.CharLimit = len(query.DateLayout)

	to := textinput.New()
	to.Placeholder = "YYYY-MM-DD"
	to.CharLimit = len(query.DateLayout)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	app := &App{
		ctx:           ctx,
		config:        cfg,
		session:       deps.Session,
		fetcher:       deps.Fetcher,
		catalog:       deps.Catalog,
		index:         deps.Index,
		opener:        deps.Opener,
		resultList:    resultList,
		sourceList:    sourceList,
		sourceFilter:  sf,
		keywordsInput: kw,
		fromInput:     from,
		toInput:       to,
		viewport:      viewport.New(0, 0),
		spinner:       sp,
		help:          help.New(),
		view:          ViewResults,
	}
	app.syncInputs()

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Article.WordWrapMaxWidth
	minWidth := a.config.UI.Article.WordWrapMinWidth
	wordWrapWidth := (a.width * 9) / 10
	if maxWidth > 0 && wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Init runs the default search and loads the source catalog.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.dispatch(a.session.TriggerSearch()),
		a.loadSources(false),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		if a.view == ViewReader {
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
		return a, nil

	case spinner.TickMsg:
		if a.session.Loading() || a.loadingArticle || a.sourcesLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case fetchDoneMsg:
		if a.session.Complete(msg.result) {
			a.refreshResults()
		}
		return a, nil

	case sourcesLoadedMsg:
		a.sourcesLoading = false
		a.sources = msg.sources
		if !msg.live {
			a.setStatus(MsgOfflineSources, StatusWarn)
		}
		a.refreshResults()
		return a, a.filterSources(a.sourceFilter.Value())

	case sourcesFilteredMsg:
		if msg.query == a.sourceFilter.Value() {
			a.setSourceItems(msg.results)
		}
		return a, nil

	case articleRenderedMsg:
		if a.view == ViewReader {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loadingArticle = false
		}
		return a, nil

	case openedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.setStatus(MsgOpened, StatusSuccess)
		}
		return a, nil

	case errorMsg:
		a.sourcesLoading = false
		a.err = msg.err
		return a, nil
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	listHeight := height - queryBarHeight - 2
	if listHeight < 5 {
		listHeight = 5
	}
	a.resultList.SetSize(width, listHeight)

	sourceHeight := height - 9
	if sourceHeight < 5 {
		sourceHeight = 5
	}
	a.sourceList.SetSize(width, sourceHeight)

	a.viewport.Width = width
	a.viewport.Height = height - 3
	a.help.Width = width

	inputWidth := width - 16
	if inputWidth < 20 {
		inputWidth = width
	}
	a.keywordsInput.Width = inputWidth
	a.sourceFilter.Width = width - 8
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

// syncInputs copies the session query into the form fields.
func (a *App) syncInputs() {
	q := a.session.Query()
	a.keywordsInput.SetValue(q.Keywords)
	a.fromInput.SetValue(query.FormatDate(q.From))
	a.toInput.SetValue(query.FormatDate(q.To))
}

func (a *App) focusQueryField(i int) {
	a.queryFocus = (i + fieldCount) % fieldCount
	inputs := []*textinput.Model{&a.keywordsInput, &a.fromInput, &a.toInput}
	for idx, in := range inputs {
		if idx == a.queryFocus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (a *App) blurQueryFields() {
	a.keywordsInput.Blur()
	a.fromInput.Blur()
	a.toInput.Blur()
}

func (a *App) sourceName(id string) string {
	for _, s := range a.sources {
		if s.ID == id && s.Name != "" {
			return s.Name
		}
	}
	return id
}

// refreshResults rebuilds the result list from the session's groups.
func (a *App) refreshResults() {
	st := a.session.State()
	groups := a.session.Groups()

	pages := make(map[string]int, len(st.Query.Sources))
	for _, s := range st.Query.Sources {
		pages[s.ID] = s.Page
	}

	var items []list.Item
	total := 0
	for _, g := range groups {
		items = append(items, groupItem{
			sourceID: g.SourceID,
			name:     a.sourceName(g.SourceID),
			page:     pages[g.SourceID],
			count:    len(g.Articles),
		})
		for _, art := range g.Articles {
			items = append(items, articleItem{article: art, maxDesc: a.config.UI.Article.MaxDescriptionLength})
		}
		total += len(g.Articles)
	}

	idx := a.resultList.Index()
	a.resultList.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		a.resultList.Select(idx)
	}

	if st.Loaded && st.Err == nil {
		if total == 0 {
			a.setStatus(MsgNoResults, StatusInfo)
		} else {
			a.setStatus(MsgResultsCount(total, len(groups)), StatusSuccess)
		}
	}
}

// setSourceItems shows results in the picker, marking requested sources.
func (a *App) setSourceItems(results []*search.Result) {
	q := a.session.Query()
	items := make([]list.Item, 0, len(results))
	for _, r := range results {
		items = append(items, sourceItem{source: r.Source, selected: q.HasSource(r.Source.ID)})
	}
	idx := a.sourceList.Index()
	a.sourceList.SetItems(items)
	if idx < len(items) {
		a.sourceList.Select(idx)
	}
}

// markSelectedSources refreshes the check marks after the selection changed.
func (a *App) markSelectedSources() {
	q := a.session.Query()
	items := a.sourceList.Items()
	for i, it := range items {
		if si, ok := it.(sourceItem); ok {
			si.selected = q.HasSource(si.source.ID)
			items[i] = si
		}
	}
	a.sourceList.SetItems(items)
}

// selectedSourceID is the source of the highlighted result row.
func (a *App) selectedSourceID() string {
	switch it := a.resultList.SelectedItem().(type) {
	case groupItem:
		return it.sourceID
	case articleItem:
		return it.article.SourceID
	}
	return ""
}

func (a *App) View() string {
	var content string
	contentHeight := a.height - 3

	switch a.view {
	case ViewResults:
		st := a.session.State()
		if a.showHelp {
			content = lipgloss.JoinVertical(lipgloss.Top,
				renderHeader("› keys", "", a.width),
				"",
				a.help.FullHelpView(a.keyHandler.KeyMap().FullHelp()),
			)
		} else if !st.Loaded && len(a.resultList.Items()) == 0 {
			content = lipgloss.JoinVertical(lipgloss.Top,
				a.renderQueryBar(),
				renderCentered(a.width, contentHeight-queryBarHeight, GetWelcomeMessage()),
			)
		} else {
			content = lipgloss.JoinVertical(lipgloss.Top, a.renderQueryBar(), a.resultList.View())
		}

	case ViewQuery:
		content = a.renderQueryForm()

	case ViewReader:
		if a.loadingArticle {
			content = renderCentered(a.width, contentHeight, renderMuted(MsgLoadingArticle))
		} else {
			content = a.viewport.View()
		}

	case ViewSources:
		selected := a.session.Query().SourceIDs()
		header := renderHeader("› sources", MsgSourcesCount(len(a.sources), selected), a.width)
		filter := renderInputFrame(a.sourceFilter.View(), a.sourceFilter.Focused(), a.sourceFilter.Width)

		helpText := "Type to filter • Tab/↓: list • Enter: add/remove • Esc: back"
		if !a.sourceFilter.Focused() {
			helpText = "↑↓: navigate • Enter: add/remove • Tab: filter • Esc: back"
		}

		body := a.sourceList.View()
		if a.sourcesLoading && len(a.sources) == 0 {
			body = renderMuted(a.spinner.View() + " " + MsgLoadingSources)
		}

		content = lipgloss.JoinVertical(lipgloss.Top, header, filter, renderHelp(helpText), body)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	statusBar := a.getStatusBar()
	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, statusBar)
}

// renderQueryBar summarizes the current query above the results.
func (a *App) renderQueryBar() string {
	q := a.session.Query()

	mode := 0
	if q.Mode == query.Everything {
		mode = 1
	}
	tabs := renderTabs([]string{query.TopHeadlines.Label(), query.Everything.Label()}, mode)

	parts := []string{}
	if q.Keywords != "" {
		parts = append(parts, fmt.Sprintf("%q", q.Keywords))
	}
	if q.Mode == query.Everything {
		parts = append(parts,
			fmt.Sprintf("%s → %s", dateOrAny(q.From), dateOrAny(q.To)),
			"by "+q.OrderBy.Label(),
		)
	}
	parts = append(parts, "sources: "+strings.Join(q.SourceIDs(), ", "))

	return lipgloss.JoinVertical(lipgloss.Top,
		tabs,
		renderMuted(truncateEnd(strings.Join(parts, " • "), a.width-2)),
		"",
	)
}

func dateOrAny(t time.Time) string {
	if t.IsZero() {
		return "any"
	}
	return query.FormatDate(t)
}

func (a *App) renderQueryForm() string {
	q := a.session.Query()

	mode := 0
	if q.Mode == query.Everything {
		mode = 1
	}

	label := func(text string) string {
		return lipgloss.NewStyle().Width(10).Foreground(MutedColor).Render(text)
	}

	dateNote := ""
	if q.Mode == query.TopHeadlines {
		dateNote = renderMuted(" (Everything only)")
	}

	rows := []string{
		renderHeader("› search", "Enter: search • Tab: next field • Esc: back", a.width),
		"",
		renderTabs([]string{query.TopHeadlines.Label(), query.Everything.Label()}, mode),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, label("Keywords"), renderInputFrame(a.keywordsInput.View(), a.queryFocus == fieldKeywords && a.keywordsInput.Focused(), a.keywordsInput.Width)),
		lipgloss.JoinHorizontal(lipgloss.Center, label("From"), renderInputFrame(a.fromInput.View(), a.fromInput.Focused(), 12), dateNote),
		lipgloss.JoinHorizontal(lipgloss.Center, label("To"), renderInputFrame(a.toInput.View(), a.toInput.Focused(), 12)),
		lipgloss.JoinHorizontal(lipgloss.Center, label("Order"), q.OrderBy.Label()),
		lipgloss.JoinHorizontal(lipgloss.Center, label("Sources"), strings.Join(q.SourceIDs(), ", ")),
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) getStatusBar() string {
	st := a.session.State()

	var left string
	switch {
	case st.Err != nil:
		left = ErrorMessageStyle.Render("✗ "+st.Err.Message) +
			renderMuted(" • "+a.keyHandler.binding(a.config.Keys.Bindings.Dismiss)+": dismiss")
	case a.err != nil:
		left = ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err))
	case st.Loading:
		left = a.spinner.View() + " " + StatusInfoStyle.Render(MsgSearching)
	case a.status != "":
		left = statusStyle(a.statusKind).Render(a.status)
	}

	commands := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	line := commands
	if left != "" {
		line = left + renderMuted("  │  ") + renderMuted(commands)
	}

	return StatusBarStyle.
		Width(a.width).
		MaxHeight(1).
		Render(line)
}

func statusStyle(kind StatusKind) lipgloss.Style {
	switch kind {
	case StatusSuccess:
		return StatusSuccessStyle
	case StatusWarn:
		return StatusWarnStyle
	case StatusError:
		return StatusErrorStyle
	default:
		return StatusInfoStyle
	}
}

type groupItem struct {
	sourceID string
	name     string
	page     int
	count    int
}

func (i groupItem) Title() string {
	return GroupHeaderStyle.Render("▌ " + i.name)
}

func (i groupItem) Description() string {
	noun := "articles"
	if i.count == 1 {
		noun = "article"
	}
	return renderMuted(fmt.Sprintf("page %d • %d %s", i.page, i.count, noun))
}

func (i groupItem) FilterValue() string { return i.name }

type articleItem struct {
	article news.Article
	maxDesc int
}

func (i articleItem) Title() string { return "  " + i.article.Title }

func (i articleItem) Description() string {
	desc := i.article.Description
	if i.maxDesc > 0 {
		desc = truncateEnd(desc, i.maxDesc)
	}

	timeStr := ""
	if !i.article.PublishedAt.IsZero() {
		timeStr = TimeStyle.Render(" • " + i.article.PublishedAt.Local().Format("Jan 2, 15:04"))
	}

	return "  " + renderMuted(desc) + timeStr
}

func (i articleItem) FilterValue() string { return i.article.Title }

type sourceItem struct {
	source   news.ProviderSource
	selected bool
}

func (i sourceItem) Title() string {
	name := i.source.Name
	if name == "" {
		name = i.source.ID
	}
	if i.selected {
		return SelectedMarkStyle.Render("✓ ") + name
	}
	return "  " + name
}

func (i sourceItem) Description() string {
	parts := []string{i.source.ID}
	if i.source.Category != "" {
		parts = append(parts, i.source.Category)
	}
	if i.source.Country != "" {
		parts = append(parts, strings.ToUpper(i.source.Country))
	}
	if i.source.URL != "" {
		parts = append(parts, truncateMiddle(i.source.URL, 40))
	}
	return renderMuted("  " + strings.Join(parts, " • "))
}

func (i sourceItem) FilterValue() string { return i.source.Name + " " + i.source.ID }

type fetchDoneMsg struct {
	result session.Result
}

type sourcesLoadedMsg struct {
	sources []news.ProviderSource
	live    bool
}

type sourcesFilteredMsg struct {
	query   string
	results []*search.Result
}

type articleRenderedMsg struct {
	content string
}

type openedMsg struct {
	err error
}

type errorMsg struct {
	err error
}
