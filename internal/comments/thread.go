package comments

import (
	"sort"

	"github.com/dyluth/gazette/internal/cms"
)

// Thread is a comment with its nested replies.
type Thread struct {
	Comment cms.Comment
	Depth   int
	Replies []*Thread
}

// BuildThread nests a flat comment list by parent ID. Siblings are ordered
// oldest first; comments whose parent is missing become roots, as does the
// oldest comment of any parent cycle.
func BuildThread(flat []cms.Comment) []*Thread {
	sorted := make([]cms.Comment, len(flat))
	copy(sorted, flat)
	sort.SliceStable(sorted, func(i, j int) bool {
		return olderThan(sorted[i], sorted[j])
	})

	byID := make(map[int]*Thread, len(sorted))
	for _, c := range sorted {
		byID[c.DatabaseID] = &Thread{Comment: c}
	}

	roots := []*Thread{}
	parents := make(map[*Thread]*Thread, len(sorted))
	for _, c := range sorted {
		node := byID[c.DatabaseID]
		parent, ok := byID[c.ParentID]
		if c.ParentID == 0 || !ok || parent == node {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
		parents[node] = parent
	}

	reached := make(map[*Thread]bool, len(sorted))
	for _, r := range roots {
		mark(r, reached)
	}
	for _, c := range sorted {
		node := byID[c.DatabaseID]
		if reached[node] {
			continue
		}
		// Only a parent cycle leaves a node unreached
		cut := oldestInCycle(node, parents)
		detach(parents[cut], cut)
		roots = append(roots, cut)
		mark(cut, reached)
	}
	sortThreads(roots)

	for _, r := range roots {
		setDepth(r, 0)
	}
	return roots
}

func mark(t *Thread, reached map[*Thread]bool) {
	reached[t] = true
	for _, r := range t.Replies {
		mark(r, reached)
	}
}

// oldestInCycle follows parents from t until it loops and returns the
// oldest comment on the loop.
func oldestInCycle(t *Thread, parents map[*Thread]*Thread) *Thread {
	seen := map[*Thread]bool{}
	for !seen[t] {
		seen[t] = true
		t = parents[t]
	}
	oldest := t
	for n := parents[t]; n != t; n = parents[n] {
		if olderThan(n.Comment, oldest.Comment) {
			oldest = n
		}
	}
	return oldest
}

func detach(parent, child *Thread) {
	for i, r := range parent.Replies {
		if r == child {
			parent.Replies = append(parent.Replies[:i], parent.Replies[i+1:]...)
			if len(parent.Replies) == 0 {
				parent.Replies = nil
			}
			return
		}
	}
}

func sortThreads(threads []*Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return olderThan(threads[i].Comment, threads[j].Comment)
	})
}

func olderThan(a, b cms.Comment) bool {
	if a.Date.Equal(b.Date) {
		return a.DatabaseID < b.DatabaseID
	}
	return a.Date.Before(b.Date)
}

func setDepth(t *Thread, depth int) {
	t.Depth = depth
	for _, r := range t.Replies {
		setDepth(r, depth+1)
	}
}
