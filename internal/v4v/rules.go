package v4v

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// Rule is an accept/reject directive with wildcarded src/dst (§3 "Rule").
type Rule struct {
	Accept bool
	Src    Address
	Dst    Address
}

// RuleTable is the globally-ordered, first-match-wins accept/reject list
// (§4.E). An empty table accepts everything.
type RuleTable struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRuleTable returns an empty table (accepts everything).
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Add inserts rule before the rule currently at position (1-based;
// position <= 0 or position > len appends to the end).
func (t *RuleTable) Add(rule Rule, position int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if position <= 0 || position > len(t.rules) {
		t.rules = append(t.rules, rule)
		return nil
	}
	t.rules = slices.Insert(t.rules, position-1, rule)
	return nil
}

// Del removes a rule by 1-based position when position != -1. When
// position == -1 it instead deletes by exact field match against match, or,
// if match is the zero Rule, flushes the whole table — matching the
// original's branch order: position first, then exact match, then flush.
func (t *RuleTable) Del(match Rule, position int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if position != -1 {
		if position <= 0 || position > len(t.rules) {
			return fmt.Errorf("del rule at position %d: %w", position, ErrInvalidArgument)
		}
		t.rules = slices.Delete(t.rules, position-1, position)
		return nil
	}
	if match != (Rule{}) {
		for i, r := range t.rules {
			if r == match {
				t.rules = slices.Delete(t.rules, i, i+1)
				return nil
			}
		}
		return fmt.Errorf("del rule %+v: %w", match, ErrNotFound)
	}
	t.rules = nil
	return nil
}

// Flush removes every rule.
func (t *RuleTable) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = nil
}

// List copies out up to limit rules starting at offset.
func (t *RuleTable) List(offset, limit int) []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if offset >= len(t.rules) {
		return nil
	}
	end := offset + limit
	if end > len(t.rules) {
		end = len(t.rules)
	}
	out := make([]Rule, end-offset)
	copy(out, t.rules[offset:end])
	return out
}

// Check walks the table first-to-last; the first matching rule decides the
// outcome (reject iff its Accept flag is false). No match means accept.
// Check is pure: identical (src, dst) always yields the identical result
// for a given table state, regardless of interleaved List calls.
func (t *RuleTable) Check(src, dst Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rules {
		if r.Src.matches(src) && r.Dst.matches(dst) {
			return r.Accept
		}
	}
	return true
}
