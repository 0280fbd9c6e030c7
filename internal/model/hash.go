package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// DomainParameterSet prefixes every parameter key hash.
// The version suffix leaves room for a future key algorithm.
const DomainParameterSet = "normativ/parameter-set/v1"

// ErrEmptyParameterSet is returned when a key is requested for no links.
var ErrEmptyParameterSet = errors.New("parameter set is empty")

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ParameterKey computes the content-addressed key of a parameter set.
// Two sets produce the same key iff they hold the same link ids.
func ParameterKey(ps ParameterSet) (string, error) {
	if len(ps) == 0 {
		return "", ErrEmptyParameterSet
	}
	canonical, err := MarshalCanonical(map[string]any{
		"ldp_ids": NewParameterSet(ps),
	})
	if err != nil {
		return "", fmt.Errorf("ParameterKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainParameterSet, canonical), nil
}

// MustParameterKey is ParameterKey for sets known to be non-empty.
func MustParameterKey(ps ParameterSet) string {
	key, err := ParameterKey(ps)
	if err != nil {
		panic(err)
	}
	return key
}
