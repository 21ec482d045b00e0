// Package ref keeps interactive-control payloads inside the chat protocol's
// 64-byte callback-data budget by swapping oversized identifiers for short
// compact references: positional indexes, content-hash aliases registered in
// a shared bucket store, or sign-tagged base36 numerics.
package ref

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// ControlDataLimit is the hard byte cap the host protocol puts on the opaque
// string carried by every interactive button.
const ControlDataLimit = 64

// Delimiter joins payload parts.
const Delimiter = ":"

const (
	positionalPrefix = "i"
	hashPrefix       = "h"
	hashAliasLength  = 8
)

// HashAlias derives a deterministic short alias from a long value:
// 64-bit FNV-1a rendered in base36, truncated.
func HashAlias(long string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(long))
	alias := strconv.FormatUint(h.Sum64(), 36)
	if len(alias) > hashAliasLength {
		alias = alias[:hashAliasLength]
	}
	return hashPrefix + alias
}

// PositionalRef encodes a position in a list the receiver can reconstruct
// from context, so no storage round-trip is needed.
func PositionalRef(index int) string {
	return positionalPrefix + strconv.FormatInt(int64(index), 36)
}

// EncodeSigned renders a signed numeric id (e.g. a chat id) compactly:
// "p"+base36 for non-negatives, "n"+base36 of the magnitude for negatives.
func EncodeSigned(n int64) string {
	if n < 0 {
		return "n" + strconv.FormatInt(-n, 36)
	}
	return "p" + strconv.FormatInt(n, 36)
}

// DecodeSigned reverses EncodeSigned.
func DecodeSigned(s string) (int64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("signed ref too short: %q", s)
	}
	mag, err := strconv.ParseInt(s[1:], 36, 64)
	if err != nil {
		return 0, fmt.Errorf("signed ref %q: %w", s, err)
	}
	switch s[0] {
	case 'p':
		return mag, nil
	case 'n':
		return -mag, nil
	}
	return 0, fmt.Errorf("signed ref %q: unknown sign tag", s)
}

// BuildPayload joins parts with the delimiter. When the joined string blows
// the byte budget, the part at oversized is replaced by a content-hash alias
// registered through the service's bucket store. Payloads that still exceed
// the budget after compaction are a programming error and fail.
func (s *Service) BuildPayload(ctx context.Context, parts []string, oversized int, budget int) (string, error) {
	if budget <= 0 || budget > ControlDataLimit {
		budget = ControlDataLimit
	}
	joined := strings.Join(parts, Delimiter)
	if len(joined) <= budget {
		return joined, nil
	}
	if oversized < 0 || oversized >= len(parts) {
		return "", fmt.Errorf("payload %d bytes over %d byte budget with no compactable part", len(joined), budget)
	}
	long := parts[oversized]
	alias := HashAlias(long)
	if err := s.EnsureAlias(ctx, alias, long); err != nil {
		return "", err
	}
	compact := make([]string, len(parts))
	copy(compact, parts)
	compact[oversized] = alias
	joined = strings.Join(compact, Delimiter)
	if len(joined) > budget {
		return "", fmt.Errorf("payload still %d bytes after compaction, budget %d", len(joined), budget)
	}
	return joined, nil
}

// ResolveRef expands a compact reference produced for a payload: positional
// refs index into page, hash refs hit the bucket store, and anything else is
// returned verbatim (it was never compacted).
func (s *Service) ResolveRef(ctx context.Context, r string, page []string) (string, error) {
	if strings.HasPrefix(r, positionalPrefix) {
		idx, err := strconv.ParseInt(r[len(positionalPrefix):], 36, 32)
		if err != nil || idx < 0 || int(idx) >= len(page) {
			return "", fmt.Errorf("positional ref %q out of range", r)
		}
		return page[idx], nil
	}
	if strings.HasPrefix(r, hashPrefix) {
		return s.ResolveAlias(ctx, r)
	}
	return r, nil
}
