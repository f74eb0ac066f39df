package notes

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Folders returns every folder in creation order.
func (r *Repository) Folders() []Folder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(make([]Folder, 0, len(r.folders)), r.folders...)
}

// Folder returns the folder with id.
func (r *Repository) Folder(id string) (Folder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.folderIndex(id)
	if index < 0 {
		return Folder{}, false
	}
	return r.folders[index], true
}

// FolderByName returns the first folder named name.
func (r *Repository) FolderByName(name string) (Folder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, folder := range r.folders {
		if folder.Name == name {
			return folder, true
		}
	}
	return Folder{}, false
}

// CreateFolder appends a folder named name.
func (r *Repository) CreateFolder(ctx context.Context, name string) (Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, r.fail(opCreateFolder, "invalid_name", ErrInvalidFolderName)
	}
	id, err := r.ids.NewID()
	if err != nil {
		return Folder{}, r.fail(opCreateFolder, "id_generation_failed", err)
	}
	folder := Folder{ID: id, Name: name, CreatedAtMillis: r.now()}

	r.folders = append(append(make([]Folder, 0, len(r.folders)+1), r.folders...), folder)
	r.persistFolders(ctx, opCreateFolder)
	r.succeed(opCreateFolder, "Folder created")
	return folder, nil
}

// UpdateFolder renames the folder with id.
func (r *Repository) UpdateFolder(ctx context.Context, id, name string) (Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.folderIndex(id)
	if index < 0 {
		return Folder{}, r.fail(opUpdateFolder, "folder_not_found", ErrFolderNotFound, zap.String("folder_id", id))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, r.fail(opUpdateFolder, "invalid_name", ErrInvalidFolderName, zap.String("folder_id", id))
	}

	folders := append(make([]Folder, 0, len(r.folders)), r.folders...)
	folders[index].Name = name
	r.folders = folders
	r.persistFolders(ctx, opUpdateFolder)
	r.succeed(opUpdateFolder, "Folder updated")
	return folders[index], nil
}

// DeleteFolder removes the folder. Its notes become unfiled and have updatedAt refreshed.
func (r *Repository) DeleteFolder(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.folderIndex(id)
	if index < 0 {
		return r.fail(opDeleteFolder, "folder_not_found", ErrFolderNotFound, zap.String("folder_id", id))
	}

	now := r.now()
	notes := cloneNotes(r.notes)
	var unfiled []Note
	for i := range notes {
		if notes[i].FolderID != id {
			continue
		}
		notes[i].FolderID = ""
		notes[i].UpdatedAtMillis = now
		unfiled = append(unfiled, notes[i])
	}
	if len(unfiled) > 0 {
		r.notes = notes
		r.persistNotes(ctx, opDeleteFolder)
		for _, note := range unfiled {
			if note.Synced {
				r.mirrorUpsert(ctx, opDeleteFolder, note)
			}
		}
	}

	folders := make([]Folder, 0, len(r.folders)-1)
	folders = append(folders, r.folders[:index]...)
	r.folders = append(folders, r.folders[index+1:]...)
	r.persistFolders(ctx, opDeleteFolder)
	r.succeed(opDeleteFolder, "Folder deleted")
	return nil
}

func (r *Repository) folderIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.folders {
		if r.folders[i].ID == id {
			return i
		}
	}
	return -1
}
