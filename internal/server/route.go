package server

import (
	"github.com/outpost-dev/outpost/internal/fsops"
	"github.com/outpost-dev/outpost/internal/proto"
	"github.com/outpost-dev/outpost/internal/sysinfo"
	"github.com/outpost-dev/outpost/internal/wireerr"
)

// route dispatches one request payload to its handler and sends the
// resulting response(s) through h. It never blocks on another request.
func route(d *Dispatcher, h replyHandle, p proto.RequestPayload) {
	switch p.Kind {
	case proto.KindFileRead:
		handleFileRead(h, *p.FileRead, false)
	case proto.KindFileReadText:
		handleFileRead(h, *p.FileReadText, true)
	case proto.KindFileWrite:
		handleFileWrite(h, p.FileWrite.Path, p.FileWrite.Data)
	case proto.KindFileWriteText:
		handleFileWrite(h, p.FileWriteText.Path, []byte(p.FileWriteText.Text))
	case proto.KindFileAppend:
		handleFileAppend(h, p.FileAppend.Path, p.FileAppend.Data)
	case proto.KindFileAppendText:
		handleFileAppend(h, p.FileAppendText.Path, []byte(p.FileAppendText.Text))
	case proto.KindDirRead:
		handleDirRead(h, *p.DirRead)
	case proto.KindDirCreate:
		handleDirCreate(h, *p.DirCreate)
	case proto.KindRemove:
		handleRemove(h, *p.Remove)
	case proto.KindCopy:
		handleCopy(h, *p.Copy)
	case proto.KindRename:
		handleRename(h, *p.Rename)
	case proto.KindExists:
		handleExists(h, *p.Exists)
	case proto.KindMetadata:
		handleMetadata(h, *p.Metadata)
	case proto.KindWatch:
		handleWatch(d, h, *p.Watch)
	case proto.KindUnwatch:
		handleUnwatch(d, h, *p.Unwatch)
	case proto.KindProcSpawn:
		handleProcSpawn(d, h, *p.ProcSpawn)
	case proto.KindProcStdin:
		handleProcStdin(d, h, *p.ProcStdin)
	case proto.KindProcResizePty:
		handleProcResizePty(d, h, *p.ProcResizePty)
	case proto.KindProcKill:
		handleProcKill(d, h, *p.ProcKill)
	case proto.KindProcList:
		handleProcList(d, h)
	case proto.KindSystemInfo:
		handleSystemInfo(h)
	case proto.KindBatch:
		handleBatch(d, h, p.Batch)
	default:
		h.Send(proto.Err(string(wireerr.Unsupported), "unknown request kind"))
	}
}

func sendErr(h replyHandle, err error) {
	we := wireerr.FromErr(err)
	h.Send(proto.Err(string(we.Kind), we.Error()))
}

func handleFileRead(h replyHandle, params proto.FileReadParams, asText bool) {
	data, err := fsops.ReadFile(params.Path)
	if err != nil {
		sendErr(h, err)
		return
	}
	if asText {
		h.Send(proto.ResponsePayload{Kind: proto.RKindText, Text: &proto.TextPayload{Text: string(data)}})
		return
	}
	h.Send(proto.ResponsePayload{Kind: proto.RKindBlob, Blob: &proto.BlobPayload{Bytes: data}})
}

func handleFileWrite(h replyHandle, path string, data []byte) {
	if err := fsops.WriteFile(path, data); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleFileAppend(h replyHandle, path string, data []byte) {
	if err := fsops.AppendFile(path, data); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleDirRead(h replyHandle, params proto.DirReadParams) {
	entries := fsops.DirRead(params)
	h.Send(proto.ResponsePayload{Kind: proto.RKindDirEntries, DirEntries: &entries})
}

func handleDirCreate(h replyHandle, params proto.DirCreateParams) {
	if err := fsops.DirCreate(params.Path, params.All); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleRemove(h replyHandle, params proto.RemoveParams) {
	if err := fsops.Remove(params.Path, params.Force); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleCopy(h replyHandle, params proto.CopyParams) {
	if err := fsops.Copy(params.Src, params.Dst); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleRename(h replyHandle, params proto.RenameParams) {
	if err := fsops.Rename(params.Src, params.Dst); err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.OK())
}

func handleExists(h replyHandle, params proto.ExistsParams) {
	h.Send(proto.ResponsePayload{Kind: proto.RKindExists, Exists: &proto.ExistsPayload{Exists: fsops.Exists(params.Path)}})
}

func handleMetadata(h replyHandle, params proto.MetadataParams) {
	md, err := fsops.Metadata(params)
	if err != nil {
		sendErr(h, err)
		return
	}
	h.Send(proto.ResponsePayload{Kind: proto.RKindMetadata, Metadata: &md})
}

func handleSystemInfo(h replyHandle) {
	info := sysinfo.Collect()
	h.Send(proto.ResponsePayload{Kind: proto.RKindSystemInfo, SystemInfo: &info})
}

// handleBatch executes each sub-request in turn, in input order. Every
// sub-request's own responses carry the top-level batch request's id as
// their origin, so the client sees one response stream; running the
// sub-requests sequentially is what keeps that stream in sub-payload-index
// order, since responses carry no index of their own to reorder by.
func handleBatch(d *Dispatcher, h replyHandle, batch []proto.RequestPayload) {
	for _, sub := range batch {
		route(d, h, sub)
	}
}
