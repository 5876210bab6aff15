// Package proto defines the wire envelope — Request and Response — and the
// closed set of request/response payload kinds exchanged between outpost
// (client) and outpostd (server). Every payload is msgpack-encoded as a map
// keyed by field name; unknown keys are ignored on decode and missing
// optional fields zero-value, satisfying the self-describing contract the
// frame codec requires of its inner format.
package proto

// Request is sent client → server. Id is allocated by the client and is
// unique for the lifetime of the session that sent it.
type Request struct {
	ID      uint64         `msgpack:"id"`
	Tenant  string         `msgpack:"tenant,omitempty"`
	Payload RequestPayload `msgpack:"payload"`
}

// Response is sent server → client. OriginID names the Request this is
// answering; a single request may produce zero, one, or many responses.
type Response struct {
	ID       uint64          `msgpack:"id"`
	OriginID uint64          `msgpack:"origin_id"`
	Tenant   string          `msgpack:"tenant,omitempty"`
	Payload  ResponsePayload `msgpack:"payload"`
}

// RequestKind discriminates the populated field of RequestPayload.
type RequestKind string

const (
	KindFileRead      RequestKind = "file-read"
	KindFileReadText  RequestKind = "file-read-text"
	KindFileWrite     RequestKind = "file-write"
	KindFileWriteText RequestKind = "file-write-text"
	KindFileAppend     RequestKind = "file-append"
	KindFileAppendText RequestKind = "file-append-text"
	KindDirRead       RequestKind = "dir-read"
	KindDirCreate     RequestKind = "dir-create"
	KindRemove        RequestKind = "remove"
	KindCopy          RequestKind = "copy"
	KindRename        RequestKind = "rename"
	KindExists        RequestKind = "exists"
	KindMetadata      RequestKind = "metadata"
	KindWatch         RequestKind = "watch"
	KindUnwatch       RequestKind = "unwatch"
	KindProcSpawn     RequestKind = "proc-spawn"
	KindProcStdin     RequestKind = "proc-stdin"
	KindProcResizePty RequestKind = "proc-resize-pty"
	KindProcKill      RequestKind = "proc-kill"
	KindProcList      RequestKind = "proc-list"
	KindSystemInfo    RequestKind = "system-info"
	KindBatch         RequestKind = "batch"
)

// RequestPayload is a tagged union over every request kind.
// Only the field matching Kind is populated; the rest are zero.
type RequestPayload struct {
	Kind RequestKind `msgpack:"kind"`

	FileRead      *FileReadParams      `msgpack:"file_read,omitempty"`
	FileReadText  *FileReadParams      `msgpack:"file_read_text,omitempty"`
	FileWrite     *FileWriteParams     `msgpack:"file_write,omitempty"`
	FileWriteText *FileWriteTextParams `msgpack:"file_write_text,omitempty"`
	FileAppend     *FileWriteParams     `msgpack:"file_append,omitempty"`
	FileAppendText *FileWriteTextParams `msgpack:"file_append_text,omitempty"`
	DirRead       *DirReadParams       `msgpack:"dir_read,omitempty"`
	DirCreate     *DirCreateParams     `msgpack:"dir_create,omitempty"`
	Remove        *RemoveParams        `msgpack:"remove,omitempty"`
	Copy          *CopyParams          `msgpack:"copy,omitempty"`
	Rename        *RenameParams        `msgpack:"rename,omitempty"`
	Exists        *ExistsParams        `msgpack:"exists,omitempty"`
	Metadata      *MetadataParams      `msgpack:"metadata,omitempty"`
	Watch         *WatchParams         `msgpack:"watch,omitempty"`
	Unwatch       *UnwatchParams       `msgpack:"unwatch,omitempty"`
	ProcSpawn     *ProcSpawnParams     `msgpack:"proc_spawn,omitempty"`
	ProcStdin     *ProcStdinParams     `msgpack:"proc_stdin,omitempty"`
	ProcResizePty *ProcResizePtyParams `msgpack:"proc_resize_pty,omitempty"`
	ProcKill      *ProcKillParams      `msgpack:"proc_kill,omitempty"`
	Batch         []RequestPayload     `msgpack:"batch,omitempty"`
}

// ── Request parameter structs ──────────────────────────────────────────────

type FileReadParams struct {
	Path string `msgpack:"path"`
}

type FileWriteParams struct {
	Path string `msgpack:"path"`
	Data []byte `msgpack:"data"`
}

type FileWriteTextParams struct {
	Path string `msgpack:"path"`
	Text string `msgpack:"text"`
}

type DirReadParams struct {
	Path          string `msgpack:"path"`
	Depth         int    `msgpack:"depth,omitempty"`
	Absolute      bool   `msgpack:"absolute,omitempty"`
	Canonicalize  bool   `msgpack:"canonicalize,omitempty"`
	IncludeRoot   bool   `msgpack:"include_root,omitempty"`
}

// NormalizedDepth returns Depth with the default of 1 applied.
func (p DirReadParams) NormalizedDepth() int {
	if p.Depth == 0 {
		return 1
	}
	return p.Depth
}

type DirCreateParams struct {
	Path string `msgpack:"path"`
	All  bool   `msgpack:"all,omitempty"`
}

type RemoveParams struct {
	Path  string `msgpack:"path"`
	Force bool   `msgpack:"force,omitempty"`
}

type CopyParams struct {
	Src string `msgpack:"src"`
	Dst string `msgpack:"dst"`
}

type RenameParams struct {
	Src string `msgpack:"src"`
	Dst string `msgpack:"dst"`
}

type ExistsParams struct {
	Path string `msgpack:"path"`
}

type MetadataParams struct {
	Path            string `msgpack:"path"`
	Canonicalize    bool   `msgpack:"canonicalize,omitempty"`
	ResolveFileType bool   `msgpack:"resolve_file_type,omitempty"`
}

type WatchParams struct {
	Path      string   `msgpack:"path"`
	Recursive bool     `msgpack:"recursive,omitempty"`
	Only      []string `msgpack:"only,omitempty"`
	Except    []string `msgpack:"except,omitempty"`
	Poll      bool     `msgpack:"poll,omitempty"`
}

type UnwatchParams struct {
	Path string `msgpack:"path"`
}

type PtyDimensions struct {
	Rows uint16 `msgpack:"rows"`
	Cols uint16 `msgpack:"cols"`
}

type ProcSpawnParams struct {
	Cmd     string            `msgpack:"cmd"`
	Args    []string          `msgpack:"args,omitempty"`
	Env     map[string]string `msgpack:"env,omitempty"`
	Cwd     string            `msgpack:"cwd,omitempty"`
	Persist bool              `msgpack:"persist,omitempty"`
	Pty     *PtyDimensions    `msgpack:"pty,omitempty"`
}

type ProcStdinParams struct {
	ID   uint64 `msgpack:"id"`
	Data []byte `msgpack:"data"`
}

type ProcResizePtyParams struct {
	ID   uint64 `msgpack:"id"`
	Rows uint16 `msgpack:"rows"`
	Cols uint16 `msgpack:"cols"`
}

type ProcKillParams struct {
	ID uint64 `msgpack:"id"`
}

// ── Response side ───────────────────────────────────────────────────────────

type ResponseKind string

const (
	RKindOK            ResponseKind = "ok"
	RKindError         ResponseKind = "error"
	RKindBlob          ResponseKind = "blob"
	RKindText          ResponseKind = "text"
	RKindDirEntries    ResponseKind = "dir-entries"
	RKindExists        ResponseKind = "exists"
	RKindMetadata      ResponseKind = "metadata"
	RKindChanged       ResponseKind = "changed"
	RKindProcSpawned   ResponseKind = "process-spawned"
	RKindProcStdout    ResponseKind = "process-stdout"
	RKindProcStderr    ResponseKind = "process-stderr"
	RKindProcDone      ResponseKind = "process-done"
	RKindProcEntries   ResponseKind = "proc-entries"
	RKindSystemInfo    ResponseKind = "system-info"
)

// ResponsePayload is a tagged union over every response kind.
type ResponsePayload struct {
	Kind ResponseKind `msgpack:"kind"`

	Error       *ErrorPayload       `msgpack:"error,omitempty"`
	Blob        *BlobPayload        `msgpack:"blob,omitempty"`
	Text        *TextPayload        `msgpack:"text,omitempty"`
	DirEntries  *DirEntriesPayload  `msgpack:"dir_entries,omitempty"`
	Exists      *ExistsPayload      `msgpack:"exists,omitempty"`
	Metadata    *MetadataPayload    `msgpack:"metadata,omitempty"`
	Changed     *ChangedPayload     `msgpack:"changed,omitempty"`
	ProcSpawned *ProcSpawnedPayload `msgpack:"process_spawned,omitempty"`
	ProcStdout  *ProcDataPayload    `msgpack:"process_stdout,omitempty"`
	ProcStderr  *ProcDataPayload    `msgpack:"process_stderr,omitempty"`
	ProcDone    *ProcDonePayload    `msgpack:"process_done,omitempty"`
	ProcEntries *ProcEntriesPayload `msgpack:"proc_entries,omitempty"`
	SystemInfo  *SystemInfoPayload  `msgpack:"system_info,omitempty"`
}

// IsTerminal reports whether this payload ends the response sequence for
// its request.
func (p ResponsePayload) IsTerminal() bool {
	switch p.Kind {
	case RKindError, RKindOK, RKindBlob, RKindText, RKindDirEntries,
		RKindExists, RKindMetadata, RKindProcDone, RKindProcEntries,
		RKindSystemInfo:
		return true
	default:
		return false
	}
}

type ErrorPayload struct {
	Kind        string `msgpack:"kind"`
	Description string `msgpack:"description"`
}

type BlobPayload struct {
	Bytes []byte `msgpack:"bytes"`
}

type TextPayload struct {
	Text string `msgpack:"text"`
}

type DirEntry struct {
	Path     string `msgpack:"path"`
	FileType string `msgpack:"file_type"` // "file" | "dir" | "symlink"
	Depth    int    `msgpack:"depth"`
}

type DirEntriesPayload struct {
	Entries []DirEntry `msgpack:"entries"`
	Errors  []string   `msgpack:"errors,omitempty"`
}

type ExistsPayload struct {
	Exists bool `msgpack:"exists"`
}

type MetadataPayload struct {
	FileType     string `msgpack:"file_type"`
	Len          uint64 `msgpack:"len"`
	Readonly     bool   `msgpack:"readonly"`
	ModifiedUnix int64  `msgpack:"modified_unix,omitempty"`
	AccessedUnix int64  `msgpack:"accessed_unix,omitempty"`
	CreatedUnix  int64  `msgpack:"created_unix,omitempty"`
	CanonicalizedPath string `msgpack:"canonicalized_path,omitempty"`
}

type ChangeDetails struct {
	NewName   string `msgpack:"new_name,omitempty"`
	Attribute uint32 `msgpack:"attribute,omitempty"`
}

type ChangedPayload struct {
	Path    string         `msgpack:"path"`
	Kind    string         `msgpack:"change_kind"` // created|removed|modified|renamed-from|renamed-to|attribute-changed|other
	Unix    int64          `msgpack:"unix"`
	Details *ChangeDetails `msgpack:"details,omitempty"`
}

type ProcSpawnedPayload struct {
	ID uint64 `msgpack:"id"`
}

type ProcDataPayload struct {
	Data []byte `msgpack:"data"`
}

type ProcDonePayload struct {
	Success bool   `msgpack:"success"`
	Code    *int32 `msgpack:"code,omitempty"`
	Signal  string `msgpack:"signal,omitempty"`
}

type ProcEntry struct {
	ID      uint64   `msgpack:"id"`
	Cmd     string   `msgpack:"cmd"`
	Args    []string `msgpack:"args,omitempty"`
	Persist bool     `msgpack:"persist"`
	Pty     bool     `msgpack:"pty"`
}

type ProcEntriesPayload struct {
	List []ProcEntry `msgpack:"list"`
}

type SystemInfoPayload struct {
	Family        string `msgpack:"family"`
	OS            string `msgpack:"os"`
	Arch          string `msgpack:"arch"`
	CurrentDir    string `msgpack:"current_dir"`
	MainSeparator string `msgpack:"main_separator"`
	Username      string `msgpack:"username,omitempty"`
	Shell         string `msgpack:"shell,omitempty"`
}

// ── Constructors used throughout server/ and session/ ──────────────────────

func OK() ResponsePayload {
	return ResponsePayload{Kind: RKindOK}
}

func Err(kind, description string) ResponsePayload {
	return ResponsePayload{Kind: RKindError, Error: &ErrorPayload{Kind: kind, Description: description}}
}
