package util_test

import (
	"strconv"
	"testing"

	"github.com/feathersql/feather/util"
)

func TestTransformSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := util.TransformSlice(in, func(n int) string { return strconv.Itoa(n * 2) })
	want := []string{"2", "4", "6"}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestTransformSliceEmpty(t *testing.T) {
	out := util.TransformSlice([]int{}, func(n int) int { return n })
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}

func TestCanonicalMapIterSortsKeys(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	var keys []string
	for k := range util.CanonicalMapIter(m) {
		keys = append(keys, k)
	}
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestCanonicalMapIterStopsEarly(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2, "c": 3}
	var seen []string
	for k := range util.CanonicalMapIter(m) {
		seen = append(seen, k)
		if k == "a" {
			break
		}
	}
	if len(seen) != 1 || seen[0] != "a" {
		t.Fatalf("expected iteration to stop after the first key, got %v", seen)
	}
}
