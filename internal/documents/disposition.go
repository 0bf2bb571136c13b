package documents

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentDisposition builds an attachment header for name. Non-ASCII names
// get an ASCII fallback plus an RFC 5987 filename* parameter.
func ContentDisposition(name string) string {
	var fallback strings.Builder
	ascii := true
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			fallback.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			continue
		case r > 0x7e:
			ascii = false
			fallback.WriteRune('_')
		default:
			fallback.WriteRune(r)
		}
	}
	header := fmt.Sprintf("attachment; filename=\"%s\"", fallback.String())
	if !ascii {
		header += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return header
}
