package dashboard

import (
	"strings"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

// Card identifies a dashboard tile.
type Card string

const (
	CardTotalInventoryItem         Card = "totalInventoryItem"
	CardExpectedTomorrow           Card = "expectedTomorrow"
	CardExpectedToday              Card = "expectedToday"
	CardToBePutInStock             Card = "toBePutInStock"
	CardWithoutAllocatedStorage    Card = "withoutAllocatedStorage"
	CardLabelsToBePrinted          Card = "labelsToBePrinted"
	CardLongerThan90Days           Card = "longerThan90Days"
	CardOpenOSDInventory           Card = "openOSDInventory"
	CardPendingDispatchedItems     Card = "pendingDispatchedItems"
	CardCriticalStockItems         Card = "criticalStockItems"
	CardDangerousGoods             Card = "dangerousGoods"
	CardTemperatureSensitive       Card = "temperatureSensitive"
	CardMainWarehouseUtilization   Card = "mainWarehouseUtilization"
	CardBondedWarehouseUtilization Card = "bondedWarehouseUtilization"
	CardCoveredStackingUtilization Card = "coveredStackingUtilization"
	CardOpenStackingUtilization    Card = "openStackingUtilization"
)

// MetricKind selects how a card is aggregated.
type MetricKind string

const (
	MetricCount MetricKind = "count"
	MetricArea  MetricKind = "area"
)

// Level tells whether a card's predicate tests shipment or line attributes.
type Level string

const (
	LevelShipment Level = "shipment"
	LevelLine     Level = "line"
)

// Audience distinguishes the internal staff dashboard from the customer portal.
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceStaff    Audience = "staff"
)

type buildEnv struct {
	lib      Library
	zoneIDs  []int64
	audience Audience
	swap     bool
}

type definition struct {
	title  string
	metric MetricKind
	level  Level
	zone   zones.Zone
	build  func(env buildEnv) predicate.Expr
}

// cardOrder fixes the summary layout.
var cardOrder = []Card{
	CardTotalInventoryItem,
	CardExpectedTomorrow,
	CardExpectedToday,
	CardToBePutInStock,
	CardWithoutAllocatedStorage,
	CardLabelsToBePrinted,
	CardLongerThan90Days,
	CardOpenOSDInventory,
	CardPendingDispatchedItems,
	CardCriticalStockItems,
	CardDangerousGoods,
	CardTemperatureSensitive,
	CardMainWarehouseUtilization,
	CardBondedWarehouseUtilization,
	CardCoveredStackingUtilization,
	CardOpenStackingUtilization,
}

var definitions = map[Card]definition{
	CardTotalInventoryItem: {
		title: "Total Inventory Items", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.TotalInventory() },
	},
	CardExpectedTomorrow: {
		title: "Expected Tomorrow", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr {
			if env.audience == AudienceStaff && env.swap {
				return env.lib.ExpectedToday()
			}
			return env.lib.ExpectedLater()
		},
	},
	CardExpectedToday: {
		title: "Expected Today", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr {
			if env.audience == AudienceStaff && env.swap {
				return env.lib.ExpectedLater()
			}
			return env.lib.ExpectedToday()
		},
	},
	CardToBePutInStock: {
		title: "To Be Put In Stock", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.ToBePutInStock() },
	},
	CardWithoutAllocatedStorage: {
		title: "Without Allocated Storage", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.WithoutAllocatedStorage() },
	},
	CardLabelsToBePrinted: {
		title: "Labels To Be Printed", metric: MetricCount, level: LevelLine,
		build: func(env buildEnv) predicate.Expr { return env.lib.LabelsToBePrinted() },
	},
	CardLongerThan90Days: {
		title: "In Storage Longer Than 90 Days", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.LongerThan(90) },
	},
	CardOpenOSDInventory: {
		title: "Open OSD Inventory", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.OpenOSDInventory() },
	},
	CardPendingDispatchedItems: {
		title: "Pending Dispatch", metric: MetricCount, level: LevelShipment,
		build: func(env buildEnv) predicate.Expr { return env.lib.PendingDispatch() },
	},
	CardCriticalStockItems: {
		title: "Critical Stock Items", metric: MetricCount, level: LevelLine,
		build: func(env buildEnv) predicate.Expr { return env.lib.CriticalItems() },
	},
	CardDangerousGoods: {
		title: "Dangerous Goods", metric: MetricCount, level: LevelLine,
		build: func(env buildEnv) predicate.Expr { return env.lib.DangerousGoods() },
	},
	CardTemperatureSensitive: {
		title: "Temperature Sensitive", metric: MetricCount, level: LevelLine,
		build: func(env buildEnv) predicate.Expr { return env.lib.TemperatureSensitive() },
	},
	CardMainWarehouseUtilization: {
		title: "Main Warehouse Utilization", metric: MetricArea, level: LevelShipment, zone: zones.ZoneMainWarehouse,
		build: func(env buildEnv) predicate.Expr { return env.lib.ZoneUtilization(env.zoneIDs) },
	},
	CardBondedWarehouseUtilization: {
		title: "Bonded Warehouse Utilization", metric: MetricArea, level: LevelShipment, zone: zones.ZoneBondedWarehouse,
		build: func(env buildEnv) predicate.Expr { return env.lib.ZoneUtilization(env.zoneIDs) },
	},
	CardCoveredStackingUtilization: {
		title: "Covered Stacking Utilization", metric: MetricArea, level: LevelShipment, zone: zones.ZoneCoveredStacking,
		build: func(env buildEnv) predicate.Expr { return env.lib.ZoneUtilization(env.zoneIDs) },
	},
	CardOpenStackingUtilization: {
		title: "Open Stacking Utilization", metric: MetricArea, level: LevelShipment, zone: zones.ZoneOpenStacking,
		build: func(env buildEnv) predicate.Expr { return env.lib.ZoneUtilization(env.zoneIDs) },
	},
}

var aliases = map[string]Card{
	"all_inventory":          CardTotalInventoryItem,
	"inbound":                CardToBePutInStock,
	"outbound":               CardPendingDispatchedItems,
	"dispatchedItems":        CardPendingDispatchedItems,
	"PendingdispatchedItems": CardPendingDispatchedItems,
}

// ParseCard resolves a card key or alias. Unknown keys report false.
func ParseCard(key string) (Card, bool) {
	key = strings.TrimSpace(key)
	if _, ok := definitions[Card(key)]; ok {
		return Card(key), true
	}
	card, ok := aliases[key]
	return card, ok
}

// Cards returns every card in summary order.
func Cards() []Card {
	out := make([]Card, len(cardOrder))
	copy(out, cardOrder)
	return out
}

// Title returns the default list title of c.
func (c Card) Title() string {
	return definitions[c].title
}

// CardInfo describes a card for clients.
type CardInfo struct {
	Key    Card       `json:"key"`
	Title  string     `json:"title"`
	Metric MetricKind `json:"metric"`
	Level  Level      `json:"level"`
	Zone   zones.Zone `json:"zone,omitempty"`
}

// Catalogue lists card metadata in summary order.
func Catalogue() []CardInfo {
	out := make([]CardInfo, 0, len(cardOrder))
	for _, card := range cardOrder {
		def := definitions[card]
		out = append(out, CardInfo{Key: card, Title: def.title, Metric: def.metric, Level: def.level, Zone: def.zone})
	}
	return out
}
