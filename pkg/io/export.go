package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/lineage/pkg/family"
)

// Meta is run-level information stored alongside an exported graph.
type Meta struct {
	RunID  string        `json:"run_id,omitempty"`
	Anchor *int          `json:"anchor,omitempty"`
	Stats  *family.Stats `json:"stats,omitempty"`
}

type document struct {
	Meta
	People []person `json:"people"`
	Edges  []edge   `json:"edges"`
}

type person struct {
	family.Person
	Generation family.Generation `json:"generation"`
}

type edge struct {
	From     int    `json:"from"`
	To       int    `json:"to"`
	Relation string `json:"relation"`
}

// WriteJSON encodes g with its generations and meta as indented JSON.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g *family.Graph, meta Meta, w io.Writer) error {
	doc := document{
		Meta:   meta,
		People: make([]person, g.NodeCount()),
		Edges:  make([]edge, g.EdgeCount()),
	}
	for i, n := range g.Nodes() {
		doc.People[i] = person{Person: n.Person, Generation: n.Generation}
	}
	for i, e := range g.Edges() {
		doc.Edges[i] = edge{From: e.From, To: e.To, Relation: e.Relation.String()}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *family.Graph, meta Meta, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, meta, f)
}
