package record

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// dotNetDatePattern matches the legacy ASP.NET JSON date encoding the
// publications endpoint still emits, e.g. "\/Date(1699564800000)\/".
var dotNetDatePattern = regexp.MustCompile(`\\?/Date\((-?\d+)\)\\?/`)

// NormalizeDates rewrites ASP.NET "/Date(ms)/" values in a raw crawler payload
// to RFC 3339 UTC timestamps so the payload decodes as ordinary JSON strings.
func NormalizeDates(raw []byte) []byte {
	return dotNetDatePattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		sub := dotNetDatePattern.FindSubmatch(m)
		ms, err := strconv.ParseInt(string(sub[1]), 10, 64)
		if err != nil {
			return m
		}
		return []byte(time.UnixMilli(ms).UTC().Format(time.RFC3339))
	})
}

// Decode parses a raw crawler payload into publication records.
//
// A payload that fails to decode is a fatal error for the ingestion run: it
// means the upstream contract changed, and silently dropping records would
// hide that.
func Decode(raw []byte) ([]Publication, error) {
	raw = NormalizeDates(raw)

	var pubs []Publication
	if err := json.Unmarshal(raw, &pubs); err != nil {
		return nil, fmt.Errorf("decoding crawler payload: %w", err)
	}
	return pubs, nil
}

// DecodeFile reads and decodes a crawler record file produced by the scraper.
func DecodeFile(path string) ([]Publication, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crawler record file: %w", err)
	}
	return Decode(raw)
}
