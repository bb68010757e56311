package ris

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Encoding names reported by ReadTextGuess and accepted by WriteFile.
const (
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingUTF8        = "utf-8"
	EncodingCP949       = "cp949"
	EncodingEUCKR       = "euc-kr"
	EncodingUTF8Replace = "utf-8(replace)"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTextGuess reads a text file, guessing its encoding.
// It tries UTF-8 with BOM, UTF-8, then CP949 and finally decodes as UTF-8
// with invalid bytes replaced.
func ReadTextGuess(path string) (text, enc string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, enc = DecodeGuess(data)
	return text, enc, nil
}

// DecodeGuess decodes data with the same strategy as ReadTextGuess.
func DecodeGuess(data []byte) (text, enc string) {
	if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
		return string(data[len(utf8BOM):]), EncodingUTF8BOM
	}
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	// x/text's EUC-KR decoder implements the CP949 (UHC) superset, so
	// trying "euc-kr" separately would never succeed where this failed.
	if s, ok := decodeStrict(korean.EUCKR, data); ok {
		return s, EncodingCP949
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), EncodingUTF8Replace
}

// decodeStrict decodes data and rejects results that needed replacement runes.
func decodeStrict(e encoding.Encoding, data []byte) (string, bool) {
	out, _, err := transform.Bytes(e.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

// encodeText converts UTF-8 text to the named encoding.
// Characters the target cannot represent are an error.
func encodeText(text, enc string) ([]byte, error) {
	switch strings.ToLower(enc) {
	case "", EncodingUTF8, "utf8":
		return []byte(text), nil
	case EncodingUTF8BOM:
		return append(append([]byte(nil), utf8BOM...), text...), nil
	case EncodingCP949, EncodingEUCKR, "euckr":
		out, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode as %s: %w", enc, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}
