// Package matcher distributes review tasks over reviewers.
//
// The distribution is a single greedy pass: candidates are visited in input
// order and each goes to the eligible reviewer with the lowest expertise
// priority, then the lowest simulated workload, then the earliest position
// in the reviewer list. Earlier choices are never revisited.
package matcher

import (
	"cmp"
	"slices"

	"reviewengine/internal/domain"
)

type candidate struct {
	reviewerID string
	priority   int
}

// ComputeAssignments matches each product to a reviewer holding a
// Category-scope preference for the product's category. Company- and
// Product-scope preferences are not consulted here.
//
// workloads is the snapshot produced by WorkloadSnapshot; it is copied and
// never mutated. Products without a category or without an eligible
// reviewer are reported as unassignable. A product listed twice is only
// considered once.
func ComputeAssignments(products []domain.Product, reviewers []domain.Reviewer, workloads map[string]int) domain.MatchResult {
	simulated := make(map[string]int, len(reviewers))
	for _, reviewer := range reviewers {
		simulated[reviewer.ID] = workloads[reviewer.ID]
	}

	result := domain.MatchResult{
		Assignments:  make([]domain.Assignment, 0, len(products)),
		Unassignable: make([]string, 0),
		Workloads:    simulated,
	}

	seen := make(map[string]struct{}, len(products))
	eligible := make([]candidate, 0, len(reviewers))

	for _, product := range products {
		if _, dup := seen[product.ID]; dup {
			continue
		}
		seen[product.ID] = struct{}{}

		eligible = eligibleReviewers(eligible[:0], reviewers, product.Category)
		if len(eligible) == 0 {
			result.Unassignable = append(result.Unassignable, product.ID)
			continue
		}

		// Stable: equal keys keep reviewer-list order.
		slices.SortStableFunc(eligible, func(a, b candidate) int {
			if c := cmp.Compare(a.priority, b.priority); c != 0 {
				return c
			}
			return cmp.Compare(simulated[a.reviewerID], simulated[b.reviewerID])
		})

		chosen := eligible[0].reviewerID
		simulated[chosen]++
		result.Assignments = append(result.Assignments, domain.Assignment{
			ProductID:  product.ID,
			ReviewerID: chosen,
			Category:   product.Category,
		})
	}

	return result
}

func eligibleReviewers(dst []candidate, reviewers []domain.Reviewer, category string) []candidate {
	if category == "" {
		return dst
	}
	for _, reviewer := range reviewers {
		if priority, ok := reviewer.CategoryPriority(category); ok {
			dst = append(dst, candidate{reviewerID: reviewer.ID, priority: priority})
		}
	}
	return dst
}
