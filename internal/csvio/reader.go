package csvio

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"chromaflow/internal/items"
)

// Encoding names the character set of an import file.
type Encoding string

const (
	// EncodingAuto detects UTF-8 and UTF-16 byte-order marks and otherwise
	// reads UTF-8.
	EncodingAuto Encoding = "auto"
	EncodingUTF8 Encoding = "utf-8"
	// EncodingUTF16 reads UTF-16, little endian unless a BOM says otherwise.
	EncodingUTF16 Encoding = "utf-16"
	// EncodingEUCKR reads legacy Korean spreadsheet exports.
	EncodingEUCKR Encoding = "euc-kr"
)

// ParseEncoding normalizes a configured encoding name.
func ParseEncoding(value string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return EncodingAuto, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16", "utf-16le":
		return EncodingUTF16, nil
	case "euc-kr", "euckr", "cp949":
		return EncodingEUCKR, nil
	default:
		return "", fmt.Errorf("unsupported csv encoding %q", value)
	}
}

func (e Encoding) decoder() transform.Transformer {
	switch e {
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingEUCKR:
		return unicode.BOMOverride(korean.EUCKR.NewDecoder())
	default:
		return unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
}

// ParseReader decodes r with enc and parses it. It returns ErrNoRows when
// the input holds no usable rows.
func (p Parser) ParseReader(r io.Reader, enc Encoding) ([]items.Item, error) {
	data, err := io.ReadAll(transform.NewReader(r, enc.decoder()))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	parsed := p.Parse(string(data))
	if len(parsed) == 0 {
		return nil, ErrNoRows
	}
	return parsed, nil
}

// ParseReader uses a zero Parser.
func ParseReader(r io.Reader, enc Encoding) ([]items.Item, error) {
	return Parser{}.ParseReader(r, enc)
}
