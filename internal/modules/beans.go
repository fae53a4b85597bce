package modules

import "time"

// Vendor JSON shapes found inside the note containers. Field names follow
// the vendor's camelCase keys; timestamps are millisecond epochs.

// NotesBean is the handwritten module's note metadata entry.
type NotesBean struct {
	NoteID     string `json:"noteId"`
	FileID     string `json:"fileId"`
	NoteName   string `json:"noteName"`
	PageCount  int    `json:"pageCount"`
	CreateTime int64  `json:"createTime"`
	ModifyTime int64  `json:"modifyTime"`
}

// LayoutTextEntry is one recognized-text block on a page.
type LayoutTextEntry struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// LayoutImageEntry ties a page to its rendered image entry name.
type LayoutImageEntry struct {
	Page int    `json:"page"`
	Name string `json:"name"`
}

// BookBean is the e-book module's metadata entry.
type BookBean struct {
	NoteID     string `json:"noteId"`
	FileID     string `json:"fileId"`
	BookName   string `json:"bookName"`
	Author     string `json:"author"`
	CreateTime int64  `json:"createTime"`
	ModifyTime int64  `json:"modifyTime"`
}

// ReadNote is one reading highlight.
type ReadNote struct {
	Chapter string `json:"chapter"`
	Content string `json:"content"`
	Summary string `json:"summary"`
	Time    int64  `json:"time"`
}

// PageTextAnnotation is one in-page text annotation.
type PageTextAnnotation struct {
	Chapter string `json:"chapter"`
	Text    string `json:"text"`
	Note    string `json:"note"`
	Time    int64  `json:"time"`
}

// HeaderInfo is the memo module's header entry. PackageName identifies the
// producing on-device module.
type HeaderInfo struct {
	PackageName string `json:"packageName"`
	NoteID      string `json:"noteId"`
	FileID      string `json:"fileId"`
	Title       string `json:"title"`
	CreateTime  int64  `json:"createTime"`
	ModifyTime  int64  `json:"modifyTime"`
}

// MemoBean is the memo body entry.
type MemoBean struct {
	Content   string `json:"content"`
	ImageName string `json:"imageName"`
}

// NoteListItem is one todo item in a memo.
type NoteListItem struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Time    int64  `json:"time"`
}

// Highlight is the flattened render shape for e-book highlights and
// annotations.
type Highlight struct {
	Text string
	Note string
}

// TodoItem is the flattened render shape for memo list items.
type TodoItem struct {
	Content string
	Done    bool
}

func msTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

const timeLayout = "2006-01-02 15:04"
const dateLayout = "2006-01-02"
