package httpclient

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/korean"

	"github.com/ternarybob/confluo/internal/models"
)

// maxReplacementRatio is the share of U+FFFD runes above which a decode is rejected
const maxReplacementRatio = 0.1

// Decode converts a response body to UTF-8.
//
// encoding is "utf-8", "cp949" or "auto"/"" (detect from header and meta tags).
// When the detected or declared encoding fails, a cp949 decode is attempted.
// Failure of every attempt returns models.ErrEncoding.
func Decode(body []byte, contentType, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8":
		if utf8.Valid(body) {
			return body, nil
		}
	case "cp949", "euc-kr":
		// declared korean, skip detection
	default:
		_, name, certain := charset.DetermineEncoding(body, contentType)
		if utf8.Valid(body) && (name == "utf-8" || !certain) {
			return body, nil
		}
		if name != "utf-8" && name != "windows-1252" && name != "euc-kr" {
			if enc, _ := charset.Lookup(name); enc != nil {
				if out, err := enc.NewDecoder().Bytes(body); err == nil && acceptable(out) {
					return out, nil
				}
			}
		}
	}

	out, err := korean.EUCKR.NewDecoder().Bytes(body)
	if err != nil || !acceptable(out) {
		return nil, fmt.Errorf("%w: body is neither utf-8 nor cp949", models.ErrEncoding)
	}
	return out, nil
}

func acceptable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	total := utf8.RuneCount(b)
	if total == 0 {
		return true
	}
	bad := strings.Count(string(b), string(utf8.RuneError))
	return float64(bad)/float64(total) <= maxReplacementRatio
}
