// Package game implements the authoritative simulation: board, players,
// units, cards and the turn state machine. Everything mutable lives in a
// Game; content definitions and compiled formulas are read-only and shared
// across sessions.
package game

import "strings"

// The six resource kinds, identified by one letter in content data. Costs,
// upkeep and casting capabilities are all spelled as strings of these
// letters.
const resourceLetters = "gfbshz"

// NumResources is the length of every cost and resource vector.
const NumResources = len(resourceLetters)

var resourceNames = [NumResources]string{"gold", "food", "blood", "scrolls", "honor", "zeal"}

// ResourceLetter returns the content-data letter for resource n.
func ResourceLetter(n int) byte { return resourceLetters[n] }

// ResourceName returns the formula-visible name for resource n.
func ResourceName(n int) string { return resourceNames[n] }

// ResourceIndex maps a content-data letter to its index, or -1.
func ResourceIndex(c byte) int {
	return strings.IndexByte(resourceLetters, c)
}

// ParseCost expands a cost string like "ffg" into a resource vector: two
// food, one gold.
func ParseCost(s string) []int {
	cost := make([]int, NumResources)
	for i := 0; i < len(s); i++ {
		if n := ResourceIndex(s[i]); n >= 0 {
			cost[n]++
		}
	}
	return cost
}

// CanPayCost reports whether the resource vector covers the cost vector.
func CanPayCost(resources, cost []int) bool {
	for n, c := range cost {
		if c == 0 {
			continue
		}
		if n >= len(resources) || resources[n] < c {
			return false
		}
	}
	return true
}
