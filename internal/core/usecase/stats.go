package usecase

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

// shapeTypes are the annotation types that get geometric descriptive statistics.
var shapeTypes = []domain.AnnotationType{domain.AnnotationBBox, domain.AnnotationPolygon}

type StatisticsUseCase struct {
	hasher  ports.ContentHasher
	workers int
}

// NewStatisticsUseCase builds the aggregator. hasher may be nil, in which case
// only hashes already present on items take part in duplicate detection.
func NewStatisticsUseCase(hasher ports.ContentHasher, workers int) *StatisticsUseCase {
	return &StatisticsUseCase{hasher: hasher, workers: workers}
}

func (uc *StatisticsUseCase) Compute(
	ctx context.Context,
	ds *domain.Dataset,
	filter domain.StatisticsFilter,
) (*domain.DatasetStatistics, error) {
	if ds == nil {
		return domain.NewDatasetStatistics(), nil
	}

	partials := make([]*statsPartial, len(ds.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(uc.workers))
	for i := range ds.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = uc.itemPartial(gctx, ds.Categories, &ds.Items[i], filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newStatsPartial()
	for _, p := range partials {
		total.merge(p)
	}
	return total.finalize(ds.Categories, filter), nil
}

func (uc *StatisticsUseCase) itemPartial(
	ctx context.Context,
	schema domain.CategorySet,
	item *domain.Item,
	filter domain.StatisticsFilter,
) *statsPartial {
	p := newStatsPartial()
	if !domain.InSubsets(item.Subset, filter.Subsets) {
		return p
	}

	p.items = 1
	p.bySubset[item.Subset] = 1

	counted := 0
	for _, ann := range item.Annotations {
		if !filter.AllowsLabel(ann.Label) {
			continue
		}
		counted++
		p.byType[ann.Type]++
		if ann.HasLabel() && schema.Has(ann.Label) {
			p.byLabel[ann.Label]++
		} else {
			p.undefined++
		}

		if ann.CheckWellFormed(schema) != nil {
			p.malformed++
			continue
		}
		if w, h, area, ok := measure(ann); ok {
			p.shapes.sample(ann.Type, "", w, h, area)
			if ann.HasLabel() {
				p.shapes.sample(ann.Type, ann.Label, w, h, area)
			}
		}
	}
	p.annotations = counted
	if counted == 0 {
		p.unannotated = 1
	}

	if hash := uc.contentHash(ctx, item); hash != "" {
		p.hashes = append(p.hashes, hashedItem{hash: hash, key: item.Key()})
	}
	return p
}

// contentHash never fails the computation: an item that cannot be hashed is
// left out of duplicate detection.
func (uc *StatisticsUseCase) contentHash(ctx context.Context, item *domain.Item) string {
	if item.ContentHash != "" || uc.hasher == nil {
		return item.ContentHash
	}
	hash, err := uc.hasher.Hash(ctx, item)
	if err != nil {
		return ""
	}
	return hash
}

// measure returns width, height and area for shape types.
func measure(ann domain.Annotation) (float64, float64, float64, bool) {
	switch ann.Type {
	case domain.AnnotationBBox:
		return ann.BBox.W, ann.BBox.H, ann.BBox.Area(), true
	case domain.AnnotationPolygon:
		b := domain.Bounds(ann.Points)
		return b.W, b.H, domain.PolygonArea(ann.Points), true
	default:
		return 0, 0, 0, false
	}
}

type hashedItem struct {
	hash string
	key  domain.ItemKey
}

type samples struct {
	width, height, area, aspect []float64
}

func (s *samples) add(w, h, area float64) {
	s.width = append(s.width, w)
	s.height = append(s.height, h)
	s.area = append(s.area, area)
	if h > 0 {
		s.aspect = append(s.aspect, w/h)
	}
}

func (s *samples) merge(other *samples) {
	s.width = append(s.width, other.width...)
	s.height = append(s.height, other.height...)
	s.area = append(s.area, other.area...)
	s.aspect = append(s.aspect, other.aspect...)
}

func (s *samples) statistics() domain.ShapeStatistics {
	return domain.ShapeStatistics{
		Count:       len(s.width),
		Width:       summarize(s.width),
		Height:      summarize(s.height),
		Area:        summarize(s.area),
		AspectRatio: summarize(s.aspect),
	}
}

// shapeSamples is keyed by type, then label; the empty label holds all labels.
type shapeSamples map[domain.AnnotationType]map[string]*samples

func (ss shapeSamples) sample(t domain.AnnotationType, label string, w, h, area float64) {
	byLabel, ok := ss[t]
	if !ok {
		byLabel = make(map[string]*samples)
		ss[t] = byLabel
	}
	s, ok := byLabel[label]
	if !ok {
		s = &samples{}
		byLabel[label] = s
	}
	s.add(w, h, area)
}

// statsPartial is the contribution of one item. merge is associative, and
// sample order only follows the order partials are merged in.
type statsPartial struct {
	items       int
	annotations int
	unannotated int
	malformed   int
	undefined   int
	bySubset    map[string]int
	byType      map[domain.AnnotationType]int
	byLabel     map[string]int
	shapes      shapeSamples
	hashes      []hashedItem
}

func newStatsPartial() *statsPartial {
	return &statsPartial{
		bySubset: make(map[string]int),
		byType:   make(map[domain.AnnotationType]int),
		byLabel:  make(map[string]int),
		shapes:   make(shapeSamples),
	}
}

func (p *statsPartial) merge(other *statsPartial) {
	if other == nil {
		return
	}
	p.items += other.items
	p.annotations += other.annotations
	p.unannotated += other.unannotated
	p.malformed += other.malformed
	p.undefined += other.undefined
	for k, v := range other.bySubset {
		p.bySubset[k] += v
	}
	for k, v := range other.byType {
		p.byType[k] += v
	}
	for k, v := range other.byLabel {
		p.byLabel[k] += v
	}
	for t, byLabel := range other.shapes {
		for label, s := range byLabel {
			if _, ok := p.shapes[t]; !ok {
				p.shapes[t] = make(map[string]*samples)
			}
			cur, ok := p.shapes[t][label]
			if !ok {
				cur = &samples{}
				p.shapes[t][label] = cur
			}
			cur.merge(s)
		}
	}
	p.hashes = append(p.hashes, other.hashes...)
}

// finalize lists every declared label the filter allows, including those
// without annotations.
func (p *statsPartial) finalize(schema domain.CategorySet, filter domain.StatisticsFilter) *domain.DatasetStatistics {
	out := domain.NewDatasetStatistics()
	out.ItemsCount = p.items
	out.AnnotationsCount = p.annotations
	out.UnannotatedItemsCount = p.unannotated
	out.MalformedCount = p.malformed
	for k, v := range p.bySubset {
		out.ItemsBySubset[k] = v
	}
	for k, v := range p.byType {
		out.AnnotationsByType[k] = v
	}
	for _, name := range schema.Names() {
		if filter.AllowsLabel(name) {
			out.AnnotationsByLabel[name] = frequency(0, p.annotations)
		}
	}
	for k, v := range p.byLabel {
		out.AnnotationsByLabel[k] = frequency(v, p.annotations)
	}
	out.UndefinedLabels = frequency(p.undefined, p.annotations)

	for _, t := range shapeTypes {
		byLabel, ok := p.shapes[t]
		if !ok {
			continue
		}
		if all, ok := byLabel[""]; ok {
			out.Shapes[t] = all.statistics()
		}
		for label, s := range byLabel {
			if label == "" {
				continue
			}
			if out.ShapesByLabel[t] == nil {
				out.ShapesByLabel[t] = make(map[string]domain.ShapeStatistics)
			}
			out.ShapesByLabel[t][label] = s.statistics()
		}
	}

	out.Duplicates = duplicateGroups(p.hashes)
	return out
}

// duplicateGroups keeps hashes shared by at least two items, in order of first
// appearance.
func duplicateGroups(hashes []hashedItem) []domain.DuplicateGroup {
	index := make(map[string]int)
	var groups []domain.DuplicateGroup
	for _, h := range hashes {
		i, ok := index[h.hash]
		if !ok {
			i = len(groups)
			index[h.hash] = i
			groups = append(groups, domain.DuplicateGroup{Hash: h.hash})
		}
		groups[i].Items = append(groups[i].Items, h.key)
	}
	out := []domain.DuplicateGroup{}
	for _, g := range groups {
		if len(g.Items) > 1 {
			out = append(out, g)
		}
	}
	return out
}

func frequency(count, total int) domain.LabelFrequency {
	f := domain.LabelFrequency{Count: count}
	if total > 0 {
		f.Percent = float64(count) * 100 / float64(total)
	}
	return f
}

func summarize(values []float64) domain.Summary {
	if len(values) == 0 {
		return domain.Summary{}
	}
	s := domain.Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// median sorts a copy; with an even count it is the mean of the two central values.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func workerLimit(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
