package session

import "strconv"

// SessionName renders a broker connection ID as the session identifier used
// on the wire. Clients treat it as opaque.
func SessionName(id int64) string {
	return "s" + strconv.FormatInt(id, 10)
}
