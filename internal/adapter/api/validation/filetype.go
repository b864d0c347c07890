// Package validation provides the upload preflight check: a submission is
// rejected locally, before any byte leaves the machine, when its content is
// not a supported video container.
package validation

import (
	"errors"
	"io"
	"net/http"
)

// ErrDisallowedFileType is returned when a file type is not in the allowlist.
var ErrDisallowedFileType = errors.New("file type not allowed")

// allowedMIMETypes is the set of video containers the processing service
// accepts for hand tracking.
var allowedMIMETypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/avi":       true,
	"video/x-msvideo": true,
}

// magicBytesBufferSize is the number of bytes read for content detection.
const magicBytesBufferSize = 512

// DetectVideoType reads the file's magic bytes, detects its MIME type, and
// reports whether it is an accepted video container. The reader position is
// reset to the beginning before returning.
func DetectVideoType(reader io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, magicBytesBufferSize)
	n, err := reader.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}

	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = detectCustomMagicBytes(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}

	return mime, allowedMIMETypes[mime], nil
}

// detectCustomMagicBytes covers containers http.DetectContentType does not
// classify reliably.
func detectCustomMagicBytes(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// WebM/Matroska: EBML header (0x1A 0x45 0xDF 0xA3)
	if buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3 {
		return "video/webm"
	}

	// AVI: RIFF....AVI (bytes 0-3: RIFF, bytes 8-11: "AVI ")
	if len(buf) >= 12 {
		if buf[0] == 'R' && buf[1] == 'I' && buf[2] == 'F' && buf[3] == 'F' &&
			buf[8] == 'A' && buf[9] == 'V' && buf[10] == 'I' && buf[11] == ' ' {
			return "video/avi"
		}
	}

	// MP4/QuickTime: ftyp box at offset 4 ([4 bytes size]["ftyp"][brand])
	if len(buf) >= 12 {
		if buf[4] == 'f' && buf[5] == 't' && buf[6] == 'y' && buf[7] == 'p' {
			brand := string(buf[8:12])
			if brand == "qt  " {
				return "video/quicktime"
			}
			return "video/mp4"
		}
	}

	return ""
}
