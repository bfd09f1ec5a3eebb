package storage

const (
	documentType   = "DocumentType"
	collectionType = "CollectionType"
)

// Folder is a collection in the document store that uploads may be
// filed under.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// docItem is one entry of the storage listing. VissibleName is the
// literal field name the service uses.
type docItem struct {
	ID          string `json:"ID"`
	Version     int    `json:"Version"`
	Type        string `json:"Type"`
	VisibleName string `json:"VissibleName"`
	Parent      string `json:"Parent"`
}

type uploadRequest struct {
	ID      string `json:"ID"`
	Type    string `json:"Type"`
	Version int    `json:"Version"`
}

type uploadResponse struct {
	ID         string `json:"ID"`
	Success    bool   `json:"Success"`
	Message    string `json:"Message"`
	BlobURLPut string `json:"BlobURLPut"`
}

type metadataUpdate struct {
	ID             string `json:"ID"`
	Parent         string `json:"Parent"`
	VisibleName    string `json:"VissibleName"`
	Type           string `json:"Type"`
	Version        int    `json:"Version"`
	ModifiedClient string `json:"ModifiedClient"`
}
