package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureKind_KeepsExistingKind(t *testing.T) {
	inner := NewError(KindImageFetch, "download image", errors.New("404"))
	wrapped := fmt.Errorf("image 1: %w", inner)

	err := EnsureKind(wrapped, KindDetailFetch, "fetch listing")

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindImageFetch, kind)
}

func TestEnsureKind_WrapsPlainErrors(t *testing.T) {
	err := EnsureKind(context.DeadlineExceeded, KindDetailFetch, "fetch listing 7")

	assert.True(t, IsKind(err, KindDetailFetch))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "detail_fetch: fetch listing 7: context deadline exceeded", err.Error())
}

func TestEnsureKind_Nil(t *testing.T) {
	assert.NoError(t, EnsureKind(nil, KindSend, "send"))
}

func TestIsKind_LooksThroughChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(KindUnknownProperty, "lookup", ErrPropertyNotFound))

	assert.True(t, IsKind(err, KindUnknownProperty))
	assert.False(t, IsKind(err, KindStoreRead))
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestSortedCandidates(t *testing.T) {
	got := SortedCandidates(map[string]int64{"b": 2, "a": 1, "c": 3})

	assert.Equal(t, []ListingCandidate{
		{PropertyID: "a", ListingID: 1},
		{PropertyID: "b", ListingID: 2},
		{PropertyID: "c", ListingID: 3},
	}, got)
}

func TestRunStats_Err(t *testing.T) {
	assert.NoError(t, RunStats{Ingested: 3}.Err())
	assert.True(t, RunStats{}.Succeeded())

	stats := RunStats{
		Failures: []ListingFailure{
			{PropertyID: "a1", ListingID: 1, Error: "detail_fetch: fetch listing 1: 502"},
			{PropertyID: "b2", ListingID: 2, Error: "image_fetch: download: 404"},
		},
	}
	err := stats.Err()
	assert.ErrorContains(t, err, "property a1 (listing 1)")
	assert.ErrorContains(t, err, "property b2 (listing 2)")
	assert.True(t, stats.Succeeded())

	assert.False(t, RunStats{RunError: "extraction: token"}.Succeeded())
}
