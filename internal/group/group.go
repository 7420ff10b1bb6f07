package group

import (
	"github.com/aldrienne/remit/internal/id"
	"github.com/aldrienne/remit/internal/model"
	"github.com/aldrienne/remit/internal/normalize"
)

// Output is everything the reduce stage hands to the generator: payment
// groups in first-seen key order, plus the two side channels unchanged.
type Output struct {
	Groups  []model.PaymentGroup
	Skipped []model.BucketEntry
	Errored []model.BucketEntry
}

// Keys returns the number of distinct outputs: one per group plus one per
// non-empty side channel.
func (o Output) Keys() int {
	n := len(o.Groups)
	if len(o.Skipped) > 0 {
		n++
	}
	if len(o.Errored) > 0 {
		n++
	}
	return n
}

// Collector accumulates normalized results into payment groups. It is the
// single consumer at the map→reduce barrier: one goroutine adds, and Output
// closes membership. Not safe for concurrent use.
type Collector struct {
	byKey    map[string]*model.PaymentGroup
	keyOrder []string
	skipped  []model.BucketEntry
	errored  []model.BucketEntry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{byKey: make(map[string]*model.PaymentGroup)}
}

// Add routes one normalized result: valid orders join their group (creating
// it on first sight), side-channel entries append to their bucket. An order
// whose group key cannot be split is errored rather than dropped.
func (c *Collector) Add(res normalize.Result) {
	switch res.Kind {
	case normalize.KindSkipped:
		c.skipped = append(c.skipped, res.Entry)
		return
	case normalize.KindErrored:
		c.errored = append(c.errored, res.Entry)
		return
	}

	order := res.Order
	g, ok := c.byKey[order.GroupKey]
	if !ok {
		accountID, vendorID, err := id.ParseGroupKey(order.GroupKey)
		if err != nil {
			c.errored = append(c.errored, model.BucketEntry{
				RecordID:    order.OrderID,
				OrderNumber: order.OrderNumber,
				EntityName:  order.EntityName,
				ErrorNote:   err.Error(),
			})
			return
		}
		g = &model.PaymentGroup{
			Key:         order.GroupKey,
			AccountID:   accountID,
			VendorID:    vendorID,
			EntityName:  order.EntityName,
			VendorEmail: order.VendorEmail,
		}
		c.byKey[order.GroupKey] = g
		c.keyOrder = append(c.keyOrder, order.GroupKey)
	}
	g.OrderIDs = append(g.OrderIDs, order.OrderID)
}

// Output closes membership and returns the grouped results. Groups appear in
// first-seen key order; order IDs keep their insertion order.
func (c *Collector) Output() Output {
	out := Output{
		Groups:  make([]model.PaymentGroup, 0, len(c.keyOrder)),
		Skipped: c.skipped,
		Errored: c.errored,
	}
	for _, key := range c.keyOrder {
		out.Groups = append(out.Groups, *c.byKey[key])
	}
	return out
}

// Collect groups a finished slice of results in one call.
func Collect(results []normalize.Result) Output {
	c := NewCollector()
	for _, res := range results {
		c.Add(res)
	}
	return c.Output()
}
