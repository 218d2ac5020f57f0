package sped

import (
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// ReadFile loads a ledger file as UTF-8 text. SPED exports are commonly
// Latin-1 encoded; when the raw bytes are not valid UTF-8 the file is
// transcoded from ISO 8859-1.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "sped: read %s", path)
	}
	return decodeText(raw)
}

// ReadAll decodes ledger text from a stream, applying the same Latin-1
// fallback as ReadFile.
func ReadAll(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "sped: read stream")
	}
	return decodeText(raw)
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", eris.Wrap(err, "sped: decode latin-1")
	}
	return string(decoded), nil
}
