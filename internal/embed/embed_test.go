// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	h := &HashEmbedder{}
	a, err := h.EmbedText(context.Background(), "celeste road bike")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.EmbedText(context.Background(), "celeste road bike")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != defaultHashDim {
		t.Fatalf("dim = %d, want %d", len(a), defaultHashDim)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	h := &HashEmbedder{Dim: 16}
	vec, err := h.EmbedText(context.Background(), "carbon frame shimano groupset")
	if err != nil {
		t.Fatal(err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
}

func TestHashEmbedderRelatedTextsCloser(t *testing.T) {
	h := &HashEmbedder{}
	ctx := context.Background()
	vecs, err := h.EmbedTexts(ctx, []string{
		"bianchi road bike celeste",
		"bianchi road bike in celeste green",
		"industrial rack mount server",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := dot(vecs[0], vecs[1])
	unrelated := dot(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("related similarity %v should exceed unrelated %v", related, unrelated)
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	h := &HashEmbedder{}
	vec, err := h.EmbedText(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatal("empty text should produce the zero vector")
		}
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
