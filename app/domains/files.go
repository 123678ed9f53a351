package domains

// File entry types in a directory listing.
const (
	FileTypeFile      = "file"
	FileTypeDirectory = "directory"
)

// FileEntry is one entry in a workspace directory listing.
type FileEntry struct {
	Name string
	Type string
}

// FileOp is the closed set of workspace file operations.
type FileOp string

const (
	FileOpList   FileOp = "list"
	FileOpRead   FileOp = "read"
	FileOpWrite  FileOp = "write"
	FileOpDelete FileOp = "delete"
	FileOpMkdir  FileOp = "mkdir"
)

// FileOpRequest describes one file operation against a session
// workspace. RelativePath must resolve inside the workspace root or the
// operation is refused before any I/O occurs.
type FileOpRequest struct {
	SessionID    string
	RelativePath string
	Op           FileOp
	Content      []byte // write only
}

// FileOpResult carries the outcome of a file operation. Entries is set
// for list, Content for read; Path is the cleaned workspace-relative
// path the operation acted on.
type FileOpResult struct {
	Path    string
	Entries []FileEntry
	Content []byte
	Size    int64
}
