package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// accountTable is the top-level key holding [account.<name>] sections.
const accountTable = "account"

// knownGlobalKeys are the valid flat top-level keys in the config file.
var knownGlobalKeys = sortedKeys(
	// Logging
	"log_level", "log_format",
	// Network
	"connect_timeout", "data_timeout", "user_agent", "requests_per_second", "graph_url",
	// Auth
	"auth_timeout", "authority_url",
)

// knownAccountKeys are the valid keys inside an [account.<name>] section.
var knownAccountKeys = sortedKeys(
	"tenant", "app_id", "client_secret", "username", "password", "user", "drive_id",
)

// sortedKeys returns keys sorted, for deterministic suggestions when two
// candidates have the same edit distance.
func sortedKeys(keys ...string) []string {
	slices.Sort(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		if err := unknownKeyError(key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key. Keys under [account.<name>]
// are matched against account keys and name their section.
func unknownKeyError(key toml.Key) error {
	if len(key) >= 3 && key[0] == accountTable {
		return describeUnknown(key[2], knownAccountKeys, fmt.Sprintf(" in [account.%s]", key[1]))
	}

	if len(key) == 2 && key[0] == accountTable {
		return fmt.Errorf("account %q: must be a table, e.g. [account.%s]", key[1], key[1])
	}

	return describeUnknown(key[0], knownGlobalKeys, "")
}

func describeUnknown(name string, known []string, where string) error {
	if suggestion := closestMatch(name, known); suggestion != "" {
		return fmt.Errorf("unknown config key %q%s; did you mean %q?", name, where, suggestion)
	}

	return fmt.Errorf("unknown config key %q%s", name, where)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(strings.ToLower(unknown), k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
