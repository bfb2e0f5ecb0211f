package pipeline

// Domains are the axis domains of one render.
type Domains struct {
	Categories []string `json:"categories"`
	Min        int      `json:"min"`
	Max        int      `json:"max"`
}

// ResolveDomains derives the categorical domain (insertion order, not
// sorted) and the numeric domain [0, tallest bar]. An empty aggregate
// resolves to no categories and [0, 0].
func ResolveDomains(agg Aggregate) Domains {
	d := Domains{Categories: agg.Keys()}
	for _, b := range agg.buckets {
		if t := b.Total(); t > d.Max {
			d.Max = t
		}
	}
	return d
}
