package topology

import (
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"
)

type faceClaim struct {
	block   BlockID
	winding [4]int
}

type faceRecord struct {
	id     FaceID
	key    [4]int
	claims []faceClaim
}

// assignFaces matches every block face against the candidate faces by its
// sorted vertex key. Face ids follow block order, then face order.
func (x *extraction) assignFaces(t *Topology, detected *redblacktree.Tree) error {
	var records []*faceRecord
	byKey := &redblacktree.Tree{Comparator: compareFaceKeys}
	t.blockFaces = make([][6]FaceID, len(t.Blocks))

	for _, b := range t.Blocks {
		for i := range BlockFaceCorners {
			w := b.FaceCorners(i)
			key := faceKey(w)
			var r *faceRecord
			if v, ok := byKey.Get(key); ok {
				r = v.(*faceRecord)
			} else {
				r = &faceRecord{id: FaceID(len(records)), key: key}
				records = append(records, r)
				byKey.Put(key, r)
			}
			r.claims = append(r.claims, faceClaim{block: b.ID, winding: w})
			t.blockFaces[b.ID][i] = r.id
		}
	}

	t.faceIndex = &redblacktree.Tree{Comparator: compareFaceKeys}
	for _, r := range records {
		f := Face{ID: r.id, Verts: r.claims[0].winding}
		switch len(r.claims) {
		case 1:
			f.Owners = Boundary{Owner: r.claims[0].block}
		case 2:
			f.Owners = Internal{Pos: r.claims[0].block, Neg: r.claims[1].block}
			if !sameCycle(f.Reversed(), r.claims[1].winding) {
				x.logf("face %v: blocks %d and %d wind it the same way", r.key, r.claims[0].block, r.claims[1].block)
			}
		default:
			return errors.Wrapf(ErrInconsistent, "face %v claimed by %d blocks", r.key, len(r.claims))
		}
		t.Faces = append(t.Faces, f)
		t.faceIndex.Put(r.key, f.ID)
	}

	it := detected.Iterator()
	for it.Next() {
		if _, ok := byKey.Get(it.Key()); !ok {
			x.logf("face %v belongs to no block, dropped", it.Value())
		}
	}
	return nil
}

// sameCycle reports whether b is a rotation of a.
func sameCycle(a, b [4]int) bool {
	for shift := 0; shift < 4; shift++ {
		match := true
		for i := 0; i < 4; i++ {
			if a[i] != b[(i+shift)%4] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
