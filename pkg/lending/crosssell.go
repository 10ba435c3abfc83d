package lending

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// ItemCount is how often an item has been seen across transactions.
type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// CrossSelling counts item frequencies in first-seen order.
type CrossSelling struct {
	counts []ItemCount
	index  map[string]int
}

// CrossSellState is the ordered frequency table.
type CrossSellState struct {
	Links []ItemCount `json:"links"`
}

func NewCrossSelling() *CrossSelling {
	return &CrossSelling{index: make(map[string]int)}
}

// Pulse adds one count per item occurrence.
func (c *CrossSelling) Pulse(transactions [][]string) {
	for _, t := range transactions {
		for _, item := range t {
			i, ok := c.index[item]
			if !ok {
				i = len(c.counts)
				c.index[item] = i
				c.counts = append(c.counts, ItemCount{Item: item})
			}
			c.counts[i].Count++
		}
	}
}

// Recommend returns the most frequent items overall, ties by first
// appearance. The current item is not used.
func (c *CrossSelling) Recommend(_ string) []string {
	ranked := append([]ItemCount(nil), c.counts...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Count > ranked[b].Count
	})
	if len(ranked) > TopItems {
		ranked = ranked[:TopItems]
	}
	out := make([]string, len(ranked))
	for i, ic := range ranked {
		out[i] = ic.Item
	}
	return out
}

func (c *CrossSelling) Snapshot() CrossSellState {
	return CrossSellState{Links: append([]ItemCount(nil), c.counts...)}
}

func (c *CrossSelling) Restore(state CrossSellState) error {
	index := make(map[string]int, len(state.Links))
	for i, ic := range state.Links {
		if _, dup := index[ic.Item]; dup {
			return errors.Wrapf(models.ErrInvalidArgument, "cross-sell item %q listed twice", ic.Item)
		}
		index[ic.Item] = i
	}
	c.counts = append([]ItemCount(nil), state.Links...)
	c.index = index
	return nil
}
