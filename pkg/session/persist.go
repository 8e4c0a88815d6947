package session

import (
	"github.com/pkg/errors"

	"github.com/chazu/swiftblock/pkg/store"
)

// Save stores the current snapshot under name.
func (s *Session) Save(st *store.Store, name string) error {
	if s.wf == nil {
		return ErrNoTopology
	}
	return st.Put(name, s.Snapshot())
}

// Load restores the snapshot stored under name.
func (s *Session) Load(st *store.Store, name string) (uint64, error) {
	var snap Snapshot
	if err := st.Get(name, &snap); err != nil {
		return s.gen, errors.Wrapf(err, "session: load %s", name)
	}
	return s.Restore(snap)
}
