package news

// Group is the articles of one requested source.
type Group struct {
	SourceID string
	Articles []Article
}

// Partition groups articles by the requested source ids. Groups follow the
// order of sourceIDs, articles keep their relative order, and articles from
// sources that were not requested are dropped. Every requested id gets a
// group, possibly empty; a repeated id gets the same group again.
func Partition(articles []Article, sourceIDs []string) []Group {
	bySource := make(map[string][]Article, len(sourceIDs))
	for _, id := range sourceIDs {
		bySource[id] = nil
	}
	for _, a := range articles {
		if _, ok := bySource[a.SourceID]; ok {
			bySource[a.SourceID] = append(bySource[a.SourceID], a)
		}
	}

	groups := make([]Group, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		list := bySource[id]
		if list == nil {
			list = []Article{}
		}
		groups = append(groups, Group{SourceID: id, Articles: list})
	}
	return groups
}
