package family_test

import (
	"fmt"

	"github.com/matzehuels/lineage/pkg/family"
)

func ExampleAssign() {
	// Two siblings sharing both parents.
	g := family.Build([]family.Person{
		{ID: 1, FirstName: "Ada", Mother: family.Ref(3), Father: family.Ref(4)},
		{ID: 2, FirstName: "Ben", Mother: family.Ref(3), Father: family.Ref(4)},
		{ID: 3, FirstName: "Cora"},
		{ID: 4, FirstName: "Dan"},
	})

	res, err := family.Assign(g, family.Options{})
	if err != nil {
		panic(err)
	}

	fmt.Println("Anchor:", res.Anchor.FirstName)
	for _, n := range g.Nodes() {
		fmt.Printf("%s: %s\n", n.FirstName, n.Generation)
	}
	// Output:
	// Anchor: Ada
	// Ada: 0
	// Ben: 0
	// Cora: 1
	// Dan: 1
}

func ExampleGraph_Leaves() {
	g := family.Build([]family.Person{
		{ID: 1, Mother: family.Ref(2)},
		{ID: 2, Mother: family.Ref(99)}, // 99 is not loaded: no edge
	})

	for _, n := range g.Leaves() {
		fmt.Println("Leaf:", n.ID)
	}
	fmt.Println("Edges:", g.EdgeCount())
	// Output:
	// Leaf: 1
	// Edges: 1
}
