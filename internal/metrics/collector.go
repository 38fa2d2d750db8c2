package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/sharecache/sharecache/internal/shared"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "sharecache"

// Metric names, without the namespace prefix.
const (
	SetsCreated        = "shared_sets_created_total"
	SetsDestroyed      = "shared_sets_destroyed_total"
	Reassignments      = "canonical_reassignments_total"
	AppearancesCreated = "appearances_created_total"
	AppearanceHits     = "appearance_hits_total"
	Detaches           = "appearances_detached_total"
)

// Collector counts shared cache events. It implements shared.Observer and
// may be shared by several caches.
type Collector struct {
	namespace string
	labels    map[string]string

	setsCreated        atomic.Uint64
	setsDestroyed      atomic.Uint64
	reassignments      atomic.Uint64
	appearancesCreated atomic.Uint64
	appearanceHits     atomic.Uint64
	detaches           atomic.Uint64
}

var _ shared.Observer = (*Collector)(nil)

// NewCollector returns a Collector whose metric names start with namespace.
// Constant labels are attached to every sample.
func NewCollector(namespace string, labels map[string]string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Collector{namespace: namespace, labels: labels}
}

// Namespace returns the prefix of the collector's metric names.
func (c *Collector) Namespace() string { return c.namespace }

func (c *Collector) SetCreated()        { c.setsCreated.Add(1) }
func (c *Collector) SetDestroyed()      { c.setsDestroyed.Add(1) }
func (c *Collector) Reassigned()        { c.reassignments.Add(1) }
func (c *Collector) AppearanceCreated() { c.appearancesCreated.Add(1) }
func (c *Collector) AppearanceHit()     { c.appearanceHits.Add(1) }
func (c *Collector) Detached()          { c.detaches.Add(1) }

// Gather returns the current counters as metric families sorted by name.
func (c *Collector) Gather() []*dto.MetricFamily {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{SetsCreated, "Shared sets installed in a session cache.", &c.setsCreated},
		{SetsDestroyed, "Shared sets dropped after their node was destroyed.", &c.setsDestroyed},
		{Reassignments, "Shared sets replaced after their canonical appearance was removed.", &c.reassignments},
		{AppearancesCreated, "Shared node objects created for additional parents.", &c.appearancesCreated},
		{AppearanceHits, "Lookups answered by an already memoized shared node.", &c.appearanceHits},
		{Detaches, "Shared nodes detached from their set.", &c.detaches},
	}

	out := make([]*dto.MetricFamily, 0, len(counters))
	for _, ct := range counters {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(c.namespace + "_" + ct.name),
			Help: proto.String(ct.help),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Label:   c.labelPairs(),
				Counter: &dto.Counter{Value: proto.Float64(float64(ct.v.Load()))},
			}},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

func (c *Collector) labelPairs() []*dto.LabelPair {
	if len(c.labels) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.labels))
	for k := range c.labels {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]*dto.LabelPair, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(k), Value: proto.String(c.labels[k])})
	}
	return pairs
}

// WriteText writes the counters to w in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	for _, mf := range c.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Summary totals one exposition of a collector's counters across label sets.
type Summary struct {
	Sets          float64
	Destroyed     float64
	Reassignments float64
	Appearances   float64
	Hits          float64
	Detaches      float64
}

// HitRatio is the share of shared node lookups answered from the memo.
func (s Summary) HitRatio() float64 {
	if lookups := s.Appearances + s.Hits; lookups > 0 {
		return s.Hits / lookups
	}
	return 0
}

func (s Summary) String() string {
	return fmt.Sprintf("sets=%g destroyed=%g reassigned=%g appearances=%g hits=%g detached=%g hit_ratio=%.2f",
		s.Sets, s.Destroyed, s.Reassignments, s.Appearances, s.Hits, s.Detaches, s.HitRatio())
}

// Summarize reads a text exposition from r and totals the counters published
// under namespace. Families of other namespaces are skipped.
func Summarize(r io.Reader, namespace string) (Summary, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return Summary{}, fmt.Errorf("metrics: parse text: %w", err)
	}

	total := func(name string) float64 {
		var v float64
		for _, m := range mfs[namespace+"_"+name].GetMetric() {
			v += m.GetCounter().GetValue() + m.GetUntyped().GetValue()
		}
		return v
	}
	return Summary{
		Sets:          total(SetsCreated),
		Destroyed:     total(SetsDestroyed),
		Reassignments: total(Reassignments),
		Appearances:   total(AppearancesCreated),
		Hits:          total(AppearanceHits),
		Detaches:      total(Detaches),
	}, nil
}
