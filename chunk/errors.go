package chunk

// Error is a chunk protocol violation.
type Error struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e Error) Error() string {
	return e.Message
}

// Errors returned by the codec and the assembly store.
var (
	// ErrInvalidChunk indicates an envelope with inconsistent metadata or an undecodable payload.
	ErrInvalidChunk = Error{Code: "INVALID_CHUNK", Message: "invalid chunk envelope"}

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = Error{Code: "INVALID_CHUNK_SIZE", Message: "chunk size must be positive"}

	// ErrChunkTooLarge indicates a chunk carrying more bytes than the configured chunk size.
	ErrChunkTooLarge = Error{Code: "CHUNK_TOO_LARGE", Message: "chunk exceeds configured chunk size"}

	// ErrMessageTooLarge indicates an envelope announcing a payload above the maximum message size.
	ErrMessageTooLarge = Error{Code: "MESSAGE_TOO_LARGE", Message: "chunk set exceeds maximum message size"}

	// ErrInvalidID indicates a chunk set id that cannot be used as a file name.
	ErrInvalidID = Error{Code: "INVALID_ID", Message: "invalid chunk set id"}

	// ErrChecksumMismatch indicates a reassembled payload whose checksum does not match.
	ErrChecksumMismatch = Error{Code: "CHECKSUM_MISMATCH", Message: "reassembled payload checksum mismatch"}
)
