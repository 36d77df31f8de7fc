package domain

// SharedFile is the metadata of a file announced by its owner.
// Content never passes through the server except as routed chunks.
type SharedFile struct {
	Name    string      `json:"name"`
	Size    int64       `json:"size"`
	Owner   ClientID    `json:"owner"`
	Sender  string      `json:"sender"`
	Session SessionName `json:"session"`
}
