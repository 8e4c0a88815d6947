// Package topology reconstructs hexahedral blocks from a raw wireframe.
//
// Extraction runs in fixed stages: chordless 4-cycles become candidate
// faces, groups of six faces closing a cube graph become blocks, blocks are
// put in a canonical corner order, faces are assigned to their owning
// blocks, and the parallel edges of every block are joined into edge
// groups with a consistent direction.
//
// Corner convention (bottom face counter-clockwise, then top):
//
//	   7-------6
//	  /|      /|
//	 4-------5 |       z
//	 | 3-----|-2       |  y
//	 |/      |/        | /
//	 0-------1         |/___ x
//
// Identifiers are only meaningful for the Topology that produced them.
package topology
