package model

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId"` // nil = root level
	SortOrder int     `json:"sortOrder"`

	seq uint64
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name     string
	ParentID *string
}

// NewFolder creates a Folder with a generated ID.
func NewFolder(params NewFolderParams) Folder {
	return Folder{
		ID:       GenerateID(),
		Name:     params.Name,
		ParentID: params.ParentID,
	}
}
