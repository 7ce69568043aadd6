package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"time"
)

// Fingerprint computes a deterministic, order-independent digest over an
// event batch: the same events in any order produce the same value. Each
// event is hashed individually, the digests are sorted and concatenated,
// and the concatenation is hashed again. Sorting makes the result
// independent of batch ordering while keeping duplicate events
// distinguishable from a single occurrence. Returns a 64-character hex
// string.
func Fingerprint(events []TransactionEvent) string {
	digests := make([][]byte, len(events))
	for i, ev := range events {
		h := sha256.Sum256(canonicalEvent(ev))
		digests[i] = h[:]
	}
	sort.Slice(digests, func(i, j int) bool {
		return bytes.Compare(digests[i], digests[j]) < 0
	})

	h := sha256.New()
	for _, d := range digests {
		h.Write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalEvent renders an event in a normalized form. Timestamps are
// reduced to UTC so equal instants with different offsets hash alike.
// Every field is length-prefixed so free-form identifiers cannot shift
// content across field boundaries.
func canonicalEvent(ev TransactionEvent) []byte {
	fields := []string{
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ev.AccountID,
		ev.ProductID,
		string(ev.Side),
		ev.Price.String(),
		strconv.FormatInt(ev.Quantity, 10),
		string(ev.EventType),
	}

	var buf bytes.Buffer
	for _, f := range fields {
		buf.WriteString(strconv.Itoa(len(f)))
		buf.WriteByte(':')
		buf.WriteString(f)
	}
	return buf.Bytes()
}
