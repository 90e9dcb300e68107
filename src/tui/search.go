package tui

import (
	"strings"
)

// applyFilter filters items by the mail filter and the search query
func (m *MainModel) applyFilter() {
	query := strings.ToLower(m.searchQuery)

	var filtered []Item
	for _, item := range m.items {
		switch m.header.GetFilter() {
		case FilterSend:
			if !item.WouldSend() {
				continue
			}
		case FilterSkip:
			if item.WouldSend() {
				continue
			}
		}
		if query != "" && !item.matches(query) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	}
}
