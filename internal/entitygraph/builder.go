package entitygraph

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
)

// DefaultNodeLimit is the number of nodes kept in a network.
const DefaultNodeLimit = 50

// pair is an unordered entity pair stored with a <= b.
type pair struct {
	a, b string
}

func newPair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// Builder accumulates entity co-occurrence for a single request. It is not
// safe for concurrent use.
type Builder struct {
	weights   map[string]int64
	order     []string
	classes   map[string][]string
	byClass   map[string]*processing.Counter
	pairs     map[pair]int64
	pairOrder []pair
	docs      int
}

// NewBuilder returns an empty accumulator.
func NewBuilder() *Builder {
	return &Builder{
		weights: make(map[string]int64),
		classes: make(map[string][]string),
		byClass: map[string]*processing.Counter{
			GroupPerson:       processing.NewCounter(),
			GroupLocation:     processing.NewCounter(),
			GroupOrganization: processing.NewCounter(),
		},
		pairs: make(map[pair]int64),
	}
}

type mention struct {
	text  string
	class string
}

// AddDocument folds one document's entity annotations into the accumulator.
// Repeated mentions inside the document count once.
func (b *Builder) AddDocument(entities []models.Entity) {
	b.docs++

	mentions := make([]mention, 0, len(entities))
	for _, ent := range entities {
		text := norm.NFC.String(ent.Name())
		if utf8.RuneCountInString(text) <= 1 {
			continue
		}
		class, ok := Classify(ent.Tag())
		if !ok {
			continue
		}
		mentions = append(mentions, mention{text: text, class: class})
	}
	if len(mentions) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(mentions))
	seenClass := make(map[mention]struct{}, len(mentions))
	unique := make([]string, 0, len(mentions))
	for _, m := range mentions {
		b.recordClass(m.text, m.class)
		if _, ok := seenClass[m]; !ok {
			seenClass[m] = struct{}{}
			b.byClass[m.class].Add(m.text)
		}
		if _, ok := seen[m.text]; ok {
			continue
		}
		seen[m.text] = struct{}{}
		unique = append(unique, m.text)
	}

	for i, e1 := range unique {
		if _, ok := b.weights[e1]; !ok {
			b.order = append(b.order, e1)
		}
		b.weights[e1]++
		for _, e2 := range unique[i+1:] {
			p := newPair(e1, e2)
			if _, ok := b.pairs[p]; !ok {
				b.pairOrder = append(b.pairOrder, p)
			}
			b.pairs[p]++
		}
	}
}

func (b *Builder) recordClass(text, class string) {
	for _, c := range b.classes[text] {
		if c == class {
			return
		}
	}
	b.classes[text] = append(b.classes[text], class)
}

// Documents returns how many documents were added.
func (b *Builder) Documents() int {
	return b.docs
}

// Weight returns the document frequency of an entity.
func (b *Builder) Weight(text string) int64 {
	return b.weights[text]
}

// PairCount returns the co-occurrence count of two entities in either order.
func (b *Builder) PairCount(x, y string) int64 {
	return b.pairs[newPair(x, y)]
}

// Group resolves the class of an entity: its single class, or mixed.
func (b *Builder) Group(text string) string {
	classes := b.classes[text]
	switch len(classes) {
	case 0:
		return ""
	case 1:
		return classes[0]
	default:
		return GroupMixed
	}
}

// Build ranks nodes by degree, keeps the top limit and the edges between
// surviving nodes. Degrees of the returned nodes count surviving edges only.
func (b *Builder) Build(limit int) models.EntityNetwork {
	degree := make(map[string]int64, len(b.order))
	for _, p := range b.pairOrder {
		w := b.pairs[p]
		degree[p.a] += w
		degree[p.b] += w
	}

	nodes := make([]models.EntityNode, 0, len(b.order))
	for _, text := range b.order {
		nodes = append(nodes, models.EntityNode{
			ID:     text,
			Label:  text,
			Degree: degree[text],
			Weight: b.weights[text],
			Group:  b.Group(text),
		})
	}
	sortByDegree(nodes)

	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	kept := make(map[string]int64, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = 0
	}

	edges := make([]models.EntityEdge, 0)
	for _, p := range b.pairOrder {
		if _, ok := kept[p.a]; !ok {
			continue
		}
		if _, ok := kept[p.b]; !ok {
			continue
		}
		w := b.pairs[p]
		edges = append(edges, models.EntityEdge{Source: p.a, Target: p.b, Value: w})
		kept[p.a] += w
		kept[p.b] += w
	}

	for i := range nodes {
		nodes[i].Degree = kept[nodes[i].ID]
	}
	sortByDegree(nodes)

	return models.EntityNetwork{Nodes: nodes, Edges: edges}
}

// TopByClass returns the k most frequent entities of one class by document frequency.
func (b *Builder) TopByClass(class string, k int) []models.NamedEntity {
	counter, ok := b.byClass[class]
	if !ok {
		return []models.NamedEntity{}
	}
	top := counter.Top(k)
	out := make([]models.NamedEntity, 0, len(top))
	for _, e := range top {
		out = append(out, models.NamedEntity{Name: e.Key, Count: e.Count, Type: class})
	}
	return out
}

func sortByDegree(nodes []models.EntityNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Degree > nodes[j].Degree
	})
}

// Canonical reports whether an edge is in canonical orientation.
func Canonical(e models.EntityEdge) bool {
	return e.Source <= e.Target
}
