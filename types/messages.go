package types

// Request and response records carried in frame payloads.
//
// Responses carry ErrorMsg; a non-empty value signals an application error
// and the remaining fields must be ignored.

// DownloadInitRequest asks the server for the authoritative metadata of a file.
type DownloadInitRequest struct {
	RemotePath string `msgpack:"remote_path"`
}

// DownloadInitResponse fixes the transfer contract: size, mtime and checksum.
type DownloadInitResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
	FileLen  uint64 `msgpack:"filelen"`
	// Mtime is in unix seconds.
	Mtime    int64  `msgpack:"mtime"`
	Checksum uint64 `msgpack:"checksum"`
}

// DownloadTransferRequest asks for up to ChunkSize bytes starting at FromByte.
type DownloadTransferRequest struct {
	RemotePath string `msgpack:"remote_path"`
	FromByte   uint64 `msgpack:"from_byte"`
	ChunkSize  uint32 `msgpack:"chunk_size"`
	Compress   bool   `msgpack:"compress"`
}

// DownloadTransferResponse is the metadata half of a bulk response.
// The chunk bytes follow as the raw tail.
type DownloadTransferResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
}

// UploadInitRequest prepares the destination. When IsContinue is false the
// server deletes any existing file first.
type UploadInitRequest struct {
	RemotePath string `msgpack:"remote_path"`
	IsContinue bool   `msgpack:"is_continue"`
}

// UploadInitResponse reports the destination's current length.
type UploadInitResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
	FileLen  uint64 `msgpack:"filelen"`
}

// UploadTransferRequest is the metadata half of a bulk upload request.
// The chunk bytes follow as the raw tail.
type UploadTransferRequest struct {
	RemotePath string `msgpack:"remote_path"`
	Compress   bool   `msgpack:"compress"`
}

// UploadTransferResponse acknowledges an appended chunk.
type UploadTransferResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
}

// UploadEndRequest asks the server to verify the checksum and apply mtime.
type UploadEndRequest struct {
	RemotePath string `msgpack:"remote_path"`
	Mtime      int64  `msgpack:"mtime"`
	Checksum   uint64 `msgpack:"checksum"`
}

// UploadEndResponse reports the verification outcome.
type UploadEndResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
}

// DeleteRequest removes a file under the server root.
type DeleteRequest struct {
	RemotePath string `msgpack:"remote_path"`
}

// DeleteResponse reports the delete outcome.
type DeleteResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
}

// ErrorResponse answers a request the server cannot route. Its encoding is
// a subset of every other response, so any response type decodes it.
type ErrorResponse struct {
	ErrorMsg string `msgpack:"error_msg,omitempty"`
}
