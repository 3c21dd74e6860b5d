package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/newsdesk/internal/news"
)

//go:embed presets.toml
var presetsTOML []byte

type presetFile struct {
	Sources []presetSource `toml:"sources"`
}

type presetSource struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
	Category    string `toml:"category"`
	Language    string `toml:"language"`
	Country     string `toml:"country"`
}

func (p presetSource) toSource() news.ProviderSource {
	return news.ProviderSource{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		Category:    p.Category,
		Language:    p.Language,
		Country:     p.Country,
	}
}

// Presets returns the built-in sources, overridden and extended by
// ~/.config/newsdesk/sources.toml when that file exists.
func Presets() ([]news.ProviderSource, error) {
	builtin, err := parsePresets(presetsTOML)
	if err != nil {
		return nil, fmt.Errorf("parsing presets.toml: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return builtin, nil
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "newsdesk", "sources.toml"))
	if err != nil {
		return builtin, nil
	}
	user, err := parsePresets(data)
	if err != nil {
		return nil, fmt.Errorf("parsing user sources.toml: %w", err)
	}
	return mergePresets(builtin, user), nil
}

func parsePresets(data []byte) ([]news.ProviderSource, error) {
	var file presetFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	out := make([]news.ProviderSource, 0, len(file.Sources))
	for _, p := range file.Sources {
		if p.ID == "" {
			continue
		}
		out = append(out, p.toSource())
	}
	return out, nil
}

// mergePresets replaces base entries by id and appends new ones.
func mergePresets(base, overrides []news.ProviderSource) []news.ProviderSource {
	index := make(map[string]int, len(base))
	out := make([]news.ProviderSource, len(base))
	copy(out, base)
	for i, s := range out {
		index[s.ID] = i
	}
	for _, s := range overrides {
		if i, ok := index[s.ID]; ok {
			out[i] = s
			continue
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}
