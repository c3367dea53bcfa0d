package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"georefgo/pkg/logging"
)

// maxParamLen drops attribute values too long for a one-line status.
const maxParamLen = 24

var logAttr = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// LatestLogResponse carries the last server log line and the last event.
type LatestLogResponse struct {
	Log   string `json:"log"`
	Event string `json:"event"`
}

func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LatestLogResponse{
		Log:   compactLogLine(logging.GlobalLogCapture.Last()),
		Event: logging.GlobalEventCapture.Last(),
	})
}

// compactLogLine turns a slog text line into "HH:MM:SS msg (k=v, ...)".
func compactLogLine(raw string) string {
	matches := logAttr.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw)
	}

	var msg, clock string
	var params []string
	for _, m := range matches {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
				clock = t.Format("15:04:05")
			}
		case "level", "source":
		case "msg":
			msg = val
		default:
			if len(val) <= maxParamLen {
				params = append(params, key+"="+val)
			}
		}
	}
	if msg == "" {
		return strings.TrimSpace(raw)
	}

	sort.Strings(params)
	out := msg
	if clock != "" {
		out = clock + " " + msg
	}
	if len(params) > 0 {
		out = fmt.Sprintf("%s (%s)", out, strings.Join(params, ", "))
	}
	return out
}
