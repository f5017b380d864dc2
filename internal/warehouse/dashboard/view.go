package dashboard

import "strings"

type viewAlias struct {
	card  string
	title string
}

var viewAliases = map[string]viewAlias{
	"inventory": {card: "all_inventory", title: "All Inventory"},
	"outbound":  {card: "dispatchedItems", title: "Outbound Dispatch Orders"},
	"inbound":   {card: "toBePutInStock", title: "Inbound Shipments"},
}

const defaultViewTitle = "Detail View"

// ResolveView maps a portal view type to a card key and page title. Aliased
// views keep their fixed title; other view types are used as the card key directly.
func ResolveView(viewType, title string) (card, resolvedTitle string) {
	viewType = strings.TrimSpace(viewType)
	title = strings.TrimSpace(title)
	if alias, ok := viewAliases[viewType]; ok {
		return alias.card, alias.title
	}
	if title == "" {
		title = defaultViewTitle
	}
	return viewType, title
}
