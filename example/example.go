// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Command example is a short, runnable walkthrough of all four
// probds components together. It builds nothing to disk.
package main

import (
	"fmt"

	"github.com/dscore/probds/bloom"
	"github.com/dscore/probds/cms"
	"github.com/dscore/probds/quotient"
	"github.com/dscore/probds/ring"
)

func main() {
	quotientDemo()
	ringDemo()
	bloomDemo()
	cmsDemo()
}

func quotientDemo() {
	fmt.Println("=== quotient filter ===")
	f, err := quotient.New(8, 8)
	if err != nil {
		panic(err)
	}
	words := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for _, w := range words {
		f.InsertString(w)
	}
	for _, w := range append(words, "foxtrot") {
		fmt.Printf("  lookup(%q) = %v\n", w, f.LookupString(w))
	}
	fmt.Printf("  %d entries across %d slots\n\n", f.Len(), f.Size())
}

func ringDemo() {
	fmt.Println("=== consistent hash ring ===")
	r, err := ring.New(8)
	if err != nil {
		panic(err)
	}
	for _, h := range []uint64{40, 120, 200} {
		if err := r.AddNode(h); err != nil {
			panic(err)
		}
	}
	for _, res := range []uint64{10, 60, 150, 210} {
		if err := r.AddResource(res); err != nil {
			panic(err)
		}
		owner, _ := r.Lookup(res)
		fmt.Printf("  resource %d routed to node %d\n", res, owner.Value)
	}
	r.RemoveNode(120)
	fmt.Printf("  after removing node 120: %v\n\n", r.Nodes())
}

func bloomDemo() {
	fmt.Println("=== bloom filter ===")
	f, err := bloom.NewWithEstimates(1000, 0.01)
	if err != nil {
		panic(err)
	}
	f.Insert([]byte("golang"))
	f.Insert([]byte("probabilistic"))
	fmt.Printf("  lookup(golang) = %v\n", f.Lookup([]byte("golang")))
	fmt.Printf("  lookup(rust) = %v\n", f.Lookup([]byte("rust")))
	fmt.Printf("  estimated fp rate at %d items: %.5f\n\n", f.TotalCount(), f.EstimatedFalsePositiveRate(f.TotalCount()))
}

func cmsDemo() {
	fmt.Println("=== count-min sketch ===")
	s, err := cms.NewWithEstimates(0.001, 0.01)
	if err != nil {
		panic(err)
	}
	stream := map[string]int64{"GET /": 500, "GET /health": 4000, "POST /login": 80}
	for path, freq := range stream {
		if err := s.Update([]byte(path), freq); err != nil {
			panic(err)
		}
	}
	for path := range stream {
		fmt.Printf("  estimate(%q) = %d\n", path, s.Estimate([]byte(path)))
	}
}
