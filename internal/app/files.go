package app

import (
	"maps"
	"sync"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// FileRegistry holds the metadata of announced files.
//
// Files are keyed by name alone: the same name announced in two sessions
// overwrites the owner entry while both sessions keep listing it.
type FileRegistry struct {
	mu        sync.RWMutex
	files     map[string]domain.SharedFile
	available map[domain.SessionName]map[string]int64
}

func NewFileRegistry() *FileRegistry {
	return &FileRegistry{
		files:     make(map[string]domain.SharedFile),
		available: make(map[domain.SessionName]map[string]int64),
	}
}

func (f *FileRegistry) Announce(file domain.SharedFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.Name] = file
	set, ok := f.available[file.Session]
	if !ok {
		set = make(map[string]int64)
		f.available[file.Session] = set
	}
	set[file.Name] = file.Size
	log.Info().Str("module", "app.files").Str("session", string(file.Session)).
		Str("file", file.Name).Int64("size", file.Size).Str("owner", file.Sender).Msg("file announced")
}

// Lookup finds a file visible in the session.
func (f *FileRegistry) Lookup(session domain.SessionName, name string) (domain.SharedFile, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.available[session][name]; !ok {
		return domain.SharedFile{}, ErrFileNotAvailable
	}
	file, ok := f.files[name]
	if !ok {
		return domain.SharedFile{}, ErrFileIncomplete
	}
	return file, nil
}

// Drop forgets an orphaned file of a session.
func (f *FileRegistry) Drop(session domain.SessionName, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.available[session]; ok {
		delete(set, name)
		if len(set) == 0 {
			delete(f.available, session)
		}
	}
	if file, ok := f.files[name]; ok && file.Session == session {
		delete(f.files, name)
	}
}

// RemoveOwner forgets every file owned by id and returns them.
func (f *FileRegistry) RemoveOwner(id domain.ClientID) []domain.SharedFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed []domain.SharedFile
	for name, file := range f.files {
		if file.Owner != id {
			continue
		}
		removed = append(removed, file)
		delete(f.files, name)
		if set, ok := f.available[file.Session]; ok {
			delete(set, name)
			if len(set) == 0 {
				delete(f.available, file.Session)
			}
		}
	}
	if len(removed) > 0 {
		log.Info().Str("module", "app.files").Str("owner", string(id)).Int("files", len(removed)).Msg("owner files removed")
	}
	return removed
}

// Available returns a copy of the session's name -> size listing.
func (f *FileRegistry) Available(session domain.SessionName) map[string]int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.available[session])
}
