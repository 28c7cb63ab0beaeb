package main

import (
	"sort"
	"sync"

	"github.com/toyz/axonroute/pkg/annotation"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/decorate"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
)

type Note struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// NoteStore keeps notes in memory
type NoteStore struct {
	mu    sync.RWMutex
	next  int
	notes map[int]Note
}

func NewNoteStore() *NoteStore {
	return &NoteStore{next: 1, notes: make(map[int]Note)}
}

func (s *NoteStore) List() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *NoteStore) Get(id int) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

func (s *NoteStore) Add(n Note) Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.next
	s.next++
	s.notes[n.ID] = n
	return n
}

func (s *NoteStore) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return false
	}
	delete(s.notes, id)
	return true
}

func (s *NoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// NotesController serves the note store
// axon::controller /notes
type NotesController struct {
	Store *NoteStore `inject:""`
}

// axon::get /
func (c *NotesController) List() []Note {
	return c.Store.List()
}

// axon::get /:id
// axon::param 0 id
func (c *NotesController) Show(id int) (Note, error) {
	n, ok := c.Store.Get(id)
	if !ok {
		return Note{}, axon.ErrNotFound("note not found")
	}
	return n, nil
}

// axon::post /
// axon::body 0
// axon::http 201
func (c *NotesController) Create(in Note) (Note, error) {
	if in.Title == "" {
		return Note{}, axon.ErrBadRequest("title is required")
	}
	return c.Store.Add(in), nil
}

// axon::delete /:id
// axon::param 0 id
// axon::http 204
func (c *NotesController) Remove(id int) error {
	if !c.Store.Delete(id) {
		return axon.ErrNotFound("note not found")
	}
	return nil
}

type HealthController struct {
	Store *NoteStore `inject:""`
}

func (c *HealthController) Status() map[string]interface{} {
	return map[string]interface{}{"status": "ok", "notes": c.Store.Len()}
}

// declareNotes replays the annotations above onto reg
func declareNotes(reg *metadata.Registry) error {
	target := (*NotesController)(nil)
	methods := []struct {
		key   string
		lines []string
	}{
		{"List", []string{"//axon::get /"}},
		{"Show", []string{"//axon::get /:id", "//axon::param 0 id"}},
		{"Create", []string{"//axon::post /", "//axon::body 0", "//axon::http 201"}},
		{"Remove", []string{"//axon::delete /:id", "//axon::param 0 id", "//axon::http 204"}},
	}
	for _, m := range methods {
		if err := annotation.Apply(reg, target, m.key, m.lines...); err != nil {
			return err
		}
	}
	if err := annotation.ApplyController(reg, target, "//axon::controller /notes"); err != nil {
		return err
	}

	decorate.On[HealthController](reg).Method("Status").Get("/").Controller("/health")
	return nil
}

func notesModule(store *NoteStore) di.Module {
	return func(c *di.Container) error {
		c.Bind(di.TypeOf[*NoteStore]()).ToConstantValue(store)
		return nil
	}
}
