package postgres

import "github.com/lib/pq"

// pqStringArray adapts a []string for use as a Postgres text[] bind
// parameter via lib/pq's array encoding.
func pqStringArray(values []string) *pq.StringArray {
	arr := pq.StringArray(values)
	return &arr
}

// pqStringArrayScan is a []string that scans a Postgres text[] column via
// lib/pq's array decoding.
type pqStringArrayScan = pq.StringArray
