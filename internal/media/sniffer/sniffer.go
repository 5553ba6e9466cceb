package sniffer

import (
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

var byMIME = map[string]MediaType{
	"image/jpeg": TypeJPEG,
	"image/png":  TypePNG,
	"image/gif":  TypeGIF,
}

var byExtension = map[string]MediaType{
	"jpg":  TypeJPEG,
	"jpeg": TypeJPEG,
	"png":  TypePNG,
	"gif":  TypeGIF,
}

// Detect reads the head of r and classifies it. The returned bytes are the
// consumed head so the caller can replay them.
func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		if t, ok := byMIME[m.String()]; ok {
			return Result{Type: t, MIME: m.String()}, nil
		}
	}
	return Result{}, ErrUnknownType
}

// Extension normalizes a filename's extension: lower case, no leading dot.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

func ExtensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// MatchesExtension reports whether sniffed content agrees with the declared
// extension, treating jpg and jpeg as the same format.
func (r Result) MatchesExtension(ext string) bool {
	t, ok := byExtension[strings.ToLower(ext)]
	return ok && t == r.Type
}
