// Package wireframe defines the user-authored curve network that block
// topology is reconstructed from: a dense list of vertex positions and
// the undirected edges between them.
package wireframe
