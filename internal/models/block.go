package models

import (
	"strings"
	"time"
)

// BlockData is a node of the course content tree as seen by the grading code.
// MaxScore and ExplicitGraded are populated by the grades transformer when the
// course is published.
type BlockData struct {
	Location           UsageKey     `db:"usage_key" json:"location"`
	CourseID           CourseKey    `db:"course_id" json:"course_id"`
	Category           string       `db:"category" json:"category"`
	DisplayName        *string      `db:"display_name" json:"display_name,omitempty"`
	Weight             *float64     `db:"weight" json:"weight,omitempty"`
	HasScore           bool         `db:"has_score" json:"has_score"`
	Graded             bool         `db:"graded" json:"graded"`
	Format             string       `db:"format" json:"format"`
	Due                *time.Time   `db:"due" json:"due,omitempty"`
	Start              *time.Time   `db:"start" json:"start,omitempty"`
	VisibleToStaffOnly bool         `db:"visible_to_staff_only" json:"visible_to_staff_only"`
	SubtreeEditedOn    time.Time    `db:"subtree_edited_on" json:"subtree_edited_on"`
	MaxScore           *float64     `db:"max_score" json:"max_score,omitempty"`
	ExplicitGraded     *bool        `db:"explicit_graded" json:"explicit_graded,omitempty"`
	Children           UsageKeyList `db:"children" json:"children,omitempty"`
}

// URLName returns the url_name of the block.
func (b *BlockData) URLName() string {
	return b.Location.BlockID()
}

// DisplayNameWithDefault returns the display name, falling back to the url
// name with underscores turned into spaces.
func (b *BlockData) DisplayNameWithDefault() string {
	if b.DisplayName != nil {
		return *b.DisplayName
	}
	return strings.ReplaceAll(b.URLName(), "_", " ")
}

// DisplayNameWithDefaultEscaped is DisplayNameWithDefault with angle brackets escaped.
func (b *BlockData) DisplayNameWithDefaultEscaped() string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(b.DisplayNameWithDefault())
}

// BlockStructure is a rooted, ordered view of a course's blocks.
type BlockStructure struct {
	root     UsageKey
	blocks   map[UsageKey]*BlockData
	children map[UsageKey][]UsageKey
	order    []UsageKey
}

// NewBlockStructure creates an empty structure rooted at root.
func NewBlockStructure(root UsageKey) *BlockStructure {
	return &BlockStructure{
		root:     root,
		blocks:   make(map[UsageKey]*BlockData),
		children: make(map[UsageKey][]UsageKey),
	}
}

// Add inserts a block; its Children list defines the outgoing edges.
func (s *BlockStructure) Add(block BlockData) {
	if _, exists := s.blocks[block.Location]; !exists {
		s.order = append(s.order, block.Location)
	}
	b := block
	s.blocks[block.Location] = &b
	s.children[block.Location] = append([]UsageKey(nil), block.Children...)
}

// Root returns the root usage key.
func (s *BlockStructure) Root() UsageKey {
	return s.root
}

// Get returns the block data for key.
func (s *BlockStructure) Get(key UsageKey) (*BlockData, bool) {
	b, ok := s.blocks[key]
	return b, ok
}

// Contains reports whether key is part of the structure.
func (s *BlockStructure) Contains(key UsageKey) bool {
	_, ok := s.blocks[key]
	return ok
}

// Children returns the children of key that are present in the structure.
func (s *BlockStructure) Children(key UsageKey) []UsageKey {
	var out []UsageKey
	for _, child := range s.children[key] {
		if s.Contains(child) {
			out = append(out, child)
		}
	}
	return out
}

// Len returns the number of blocks.
func (s *BlockStructure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.blocks)
}

// Keys returns every block key in insertion order.
func (s *BlockStructure) Keys() []UsageKey {
	out := make([]UsageKey, 0, len(s.blocks))
	for _, key := range s.order {
		if s.Contains(key) {
			out = append(out, key)
		}
	}
	return out
}

// RemoveSubtree drops key and every block no longer reachable from the root.
func (s *BlockStructure) RemoveSubtree(key UsageKey) {
	delete(s.blocks, key)
	delete(s.children, key)
	s.prune()
}

func (s *BlockStructure) prune() {
	reachable := make(map[UsageKey]bool, len(s.blocks))
	var walk func(UsageKey)
	walk = func(key UsageKey) {
		if reachable[key] || !s.Contains(key) {
			return
		}
		reachable[key] = true
		for _, child := range s.children[key] {
			walk(child)
		}
	}
	walk(s.root)
	for key := range s.blocks {
		if !reachable[key] {
			delete(s.blocks, key)
			delete(s.children, key)
		}
	}
}

// PostOrderTraversal visits the subtree under start children-first. Each block
// is yielded once; blocks rejected by filter are skipped with their subtrees.
func (s *BlockStructure) PostOrderTraversal(start UsageKey, filter func(UsageKey) bool) []UsageKey {
	var result []UsageKey
	visited := make(map[UsageKey]bool)
	var visit func(UsageKey)
	visit = func(key UsageKey) {
		if visited[key] || !s.Contains(key) {
			return
		}
		visited[key] = true
		if filter != nil && !filter(key) {
			return
		}
		for _, child := range s.Children(key) {
			visit(child)
		}
		result = append(result, key)
	}
	visit(start)
	return result
}
