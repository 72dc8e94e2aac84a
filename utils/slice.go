package utils

import "strings"

// UniqueUint removes duplicate values from a slice of uints.
func UniqueUint(slice []uint) []uint {
	keys := make(map[uint]bool)
	list := []uint{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// UniqueFold trims every entry, drops empty ones and removes case-insensitive
// duplicates. The first spelling wins.
func UniqueFold(slice []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k := strings.ToLower(entry)
		if keys[k] {
			continue
		}
		keys[k] = true
		list = append(list, entry)
	}
	return list
}
