package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrReductionInconclusive is returned when collapsing two states would
// require splitting a node the reducer has already committed to merging.
// The crawl is left with its pre-reduction (larger) state count rather
// than silently producing an incorrect graph.
var ErrReductionInconclusive = errors.New("graph: state reduction requires a page split, which is not implemented")

// Reducer collapses states of an application graph that turned out to be
// behaviorally equivalent.
type Reducer struct{}

func NewReducer() *Reducer { return &Reducer{} }

// Reduce walks the graph's single canonical path (following, on divergence,
// the link the original navigation actually used), collapsing each step's
// state into the previous one. If the link taken at a step reached a
// different target at an earlier state whose representative differs from
// this step's, it returns ErrReductionInconclusive. It then folds every
// link's and request's per-state targets down to their representative
// state, and returns the representative of the graph's final state.
func (r *Reducer) Reduce(g *Graph) (int, error) {
	statemap := make([]int, g.MaxState+1)
	for i := range statemap {
		statemap[i] = i
	}
	minMapped := func(state int) int {
		prev, mapped := state, statemap[state]
		for mapped != prev {
			prev, mapped = mapped, statemap[mapped]
		}
		return mapped
	}

	type histEntry struct {
		page *AbstractPage
	}

	currReq := g.HeadRequest
	currState := 0
	var hist []histEntry

	for {
		t, ok := currReq.Targets()[currState]
		if !ok {
			return 0, fmt.Errorf("graph: request %s %s has no target for state %d", currReq.Method, currReq.Path, currState)
		}
		respPage, ok := t.Node.(*AbstractPage)
		if !ok {
			return 0, fmt.Errorf("graph: expected request target at state %d to be a page", currState)
		}
		hist = append(hist, histEntry{respPage})
		currState++
		statemap[currState] = currState - 1

		if _, ok := respPage.StateLinkMap[currState]; !ok {
			if currState == g.MaxState {
				break
			}
			for {
				if _, ok := respPage.StateLinkMap[currState]; ok {
					break
				}
				if len(hist) == 0 {
					return 0, fmt.Errorf("graph: no path forward from state %d while reducing", currState)
				}
				hist = hist[:len(hist)-1]
				if len(hist) == 0 {
					return 0, fmt.Errorf("graph: no path forward from state %d while reducing", currState)
				}
				respPage = hist[len(hist)-1].page
			}
		}

		chosenLink := respPage.StateLinkMap[currState]
		chosenTarget, ok := chosenLink.Targets()[currState]
		if !ok {
			panic("graph: state-link-map points at a link with no target for that state")
		}

		var smaller []int
		for st, tg := range chosenLink.Targets() {
			if st < currState && tg.Node != chosenTarget.Node {
				smaller = append(smaller, st)
			}
		}
		if len(smaller) > 0 {
			sort.Sort(sort.Reverse(sort.IntSlice(smaller)))
			currMapsTo := minMapped(currState)
			for _, ss := range smaller {
				if minMapped(ss) != currMapsTo {
					return 0, ErrReductionInconclusive
				}
				statemap[ss] = currMapsTo
			}
		}

		nextReq, ok := chosenTarget.Node.(*AbstractRequest)
		if !ok {
			return 0, errors.New("graph: expected link target to be a request")
		}
		currReq = nextReq
	}

	for i := range statemap {
		statemap[i] = minMapped(i)
	}

	for _, ap := range g.Pages {
		for _, link := range ap.Links() {
			if err := collapseTargets(link.Targets(), statemap); err != nil {
				return 0, err
			}
		}
	}
	for _, ar := range g.RequestMap {
		if err := collapseTargets(ar.Targets(), statemap); err != nil {
			return 0, err
		}
	}

	return statemap[len(statemap)-1], nil
}

// collapseTargets folds a map of per-state targets down onto their
// statemap representatives, merging visit counts where several raw states
// land on the same representative.
func collapseTargets(targets map[int]*Target, statemap []int) error {
	type pair struct{ st, good int }
	pairs := make([]pair, 0, len(targets))
	for st := range targets {
		pairs = append(pairs, pair{st, statemap[st]})
	}
	for _, pr := range pairs {
		if pr.st == pr.good {
			targets[pr.good].NVisits++
			continue
		}
		if existing, ok := targets[pr.good]; ok {
			if existing.Node != targets[pr.st].Node {
				return fmt.Errorf("graph: conflicting collapse onto state %d", pr.good)
			}
			delete(targets, pr.st)
			existing.NVisits++
			continue
		}
		targets[pr.good] = targets[pr.st]
		delete(targets, pr.st)
		targets[pr.good].NVisits++
	}
	return nil
}
